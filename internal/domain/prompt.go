package domain

import "strings"

// DefaultPrompt: инструкция модели: лицо по голосу, без текста
const DefaultPrompt = `
Do not include any inappropriate or sexual depiction (nothing that emphasises sexiness).
Imagine the speaker from the voice (age, personality, appearance) and generate a realistic,
natural, photo-like image based on that impression.
The image must not contain any text.
Do not include descriptions or captions either.
The image should be very beautiful, high resolution (4K equivalent) and close to photographic quality.
Do not generate any text at all; generate only an image of the face.
`

func promptOrDefault(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return strings.TrimSpace(DefaultPrompt)
	}
	return p
}
