package ai

import "strings"

const systemPrompt = `You write multiple-choice quiz questions.
Answer with exactly one question in this plain-text format and nothing else:

Theme: <topic>
Question: <question text>
A) <option>
B) <option>
C) <option>
D) <option>
Correct answer: <A, B, C or D>
Difficulty level: <easy, medium or hard>

Exactly one option is correct. Do not number the question and do not add explanations.`

// userPrompt asks for a question on topic, or on a topic of the model's
// choosing when topic is empty.
func userPrompt(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "Pick an interesting general-knowledge topic yourself, name it on the Theme line, and write one question about it."
	}
	return "Write one new question about the topic \"" + topic + "\". Use \"" + topic + "\" on the Theme line."
}
