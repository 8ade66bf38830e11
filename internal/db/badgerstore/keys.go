package badgerstore

const (
	topicPrefix    = "topic:"
	questionPrefix = "question:"
)

func topicKey(name string) []byte {
	return []byte(topicPrefix + name)
}

// questionKey places the content fingerprint under its partition so that the
// key itself is the uniqueness constraint.
func questionKey(partition, hash string) []byte {
	return []byte(questionPrefix + partition + ":" + hash)
}

func partitionPrefix(partition string) []byte {
	return []byte(questionPrefix + partition + ":")
}
