package chat

import "strings"

// Kind classifies a message payload by its sentinel prefix.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindFile  Kind = "file"
)

// Sentinel prefixes marking non-text payloads.
const (
	PrefixImage = "[IMAGEM]"
	PrefixAudio = "[AUDIO]"
	PrefixFile  = "[ARQUIVO]"
)

var sentinels = []struct {
	prefix string
	kind   Kind
	label  string
}{
	{PrefixImage, KindImage, "📷 Imagem"},
	{PrefixAudio, KindAudio, "🎤 Áudio"},
	{PrefixFile, KindFile, "📄 Arquivo"},
}

// Preview returns the label shown for text in summaries and notifications.
// Sentinel payloads never show their raw text.
func Preview(text string) string {
	for _, s := range sentinels {
		if strings.HasPrefix(text, s.prefix) {
			return s.label
		}
	}
	return text
}

// Classify returns the payload kind of text.
func Classify(text string) Kind {
	for _, s := range sentinels {
		if strings.HasPrefix(text, s.prefix) {
			return s.kind
		}
	}
	return KindText
}

// Payload strips the sentinel prefix, leaving e.g. the attachment URL.
func Payload(text string) string {
	for _, s := range sentinels {
		if rest, ok := strings.CutPrefix(text, s.prefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return text
}

// Compose builds message text for a payload of kind k.
func Compose(k Kind, payload string) string {
	for _, s := range sentinels {
		if s.kind == k {
			return s.prefix + payload
		}
	}
	return payload
}
