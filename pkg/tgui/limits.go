package tgui

const (
	// MaxTitleRunes is Telegram's chat title limit.
	MaxTitleRunes = 128
	// MaxMessageRunes is Telegram's text message limit after entity parsing.
	MaxMessageRunes = 4096
)
