package models

import (
	"path"
	"regexp"
	"strings"
	"time"
)

const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// Message is a chat message as delivered by the server.
type Message struct {
	ID        string    `json:"_id"`
	Sender    User      `json:"sender"`
	Content   string    `json:"content"`
	Type      string    `json:"type,omitempty"`
	FileURL   string    `json:"fileUrl,omitempty"`
	Chat      ChatRef   `json:"chat"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationID returns the id of the parent conversation.
func (m Message) ConversationID() string {
	return m.Chat.ID
}

// IsFile reports whether the message references a file rather than text.
func (m Message) IsFile() bool {
	return m.Type == MessageTypeFile || m.FileURL != ""
}

// MediaKind classifies message content for the details panel.
type MediaKind string

const (
	MediaText     MediaKind = "text"
	MediaLink     MediaKind = "link"
	MediaImage    MediaKind = "image"
	MediaAudio    MediaKind = "audio"
	MediaVideo    MediaKind = "video"
	MediaPDF      MediaKind = "pdf"
	MediaDocument MediaKind = "document"
)

var linkPattern = regexp.MustCompile(`^https?://\S+$`)

// Media classifies the message by the extension of its file or content.
func (m Message) Media() MediaKind {
	ref := m.Content
	if m.FileURL != "" {
		ref = m.FileURL
	}
	ref = strings.TrimSpace(ref)
	switch strings.ToLower(path.Ext(stripQuery(ref))) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return MediaImage
	case ".mp3", ".wav", ".ogg":
		return MediaAudio
	case ".webm", ".mp4", ".mov":
		return MediaVideo
	case ".pdf":
		return MediaPDF
	case ".doc", ".docx", ".xls", ".xlsx", ".zip", ".rar":
		return MediaDocument
	}
	if linkPattern.MatchString(ref) {
		return MediaLink
	}
	return MediaText
}

func stripQuery(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}
