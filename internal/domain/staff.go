package domain

import (
	"fmt"
	"strings"
	"time"
)

// Roles lists the positions a staff member can hold.
var Roles = []string{
	"Управляющий",
	"Соучредитель",
	"Учредитель",
	"Шеф-концепт",
	"Шеф-бара",
	"Шеф-пекарь-кондитер",
	"Официант",
	"Кассир",
	"Хостесс",
	"Су-шеф",
}

// Staff is a registered employee allowed to submit feedback.
type Staff struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Username   string
	Role       string
	Deleted    bool
	CreatedAt  time.Time
}

// DisplayName renders "First [Last] [@username]".
func (s Staff) DisplayName() string {
	parts := make([]string, 0, 3)
	if s.FirstName != "" {
		parts = append(parts, s.FirstName)
	}
	if s.LastName != "" {
		parts = append(parts, s.LastName)
	}
	if s.Username != "" {
		parts = append(parts, "@"+s.Username)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("id%d", s.TelegramID)
	}
	return strings.Join(parts, " ")
}

// StaffReport is a piece of feedback submitted by staff.
type StaffReport struct {
	ID            int64
	StaffID       int64
	SubmittedAt   time.Time
	AuthorName    string
	Role          string
	Text          string
	Caption       string
	VoiceFileID   string
	Transcription string
	// SourceChatID and SourceMessageID point to the original chat message.
	SourceChatID    int64
	SourceMessageID int
}

// PlaceholderText stands in for reports that carry no usable content.
const PlaceholderText = "Нет текста"

// Body resolves the canonical text of the report and whether it was usable.
func (r StaffReport) Body() (string, bool) {
	switch {
	case strings.TrimSpace(r.Text) != "":
		return r.Text, true
	case strings.TrimSpace(r.Caption) != "":
		return r.Caption, true
	case strings.TrimSpace(r.Transcription) != "":
		return "Транскрипция: " + r.Transcription, true
	default:
		return PlaceholderText, false
	}
}

// Valid reports whether the report has any text or transcript.
func (r StaffReport) Valid() bool {
	_, ok := r.Body()
	return ok
}

// AsReview maps the report into the review shape consumed by the compiler.
func (r StaffReport) AsReview() Review {
	body, _ := r.Body()
	author := r.AuthorName
	if r.Role != "" {
		author = fmt.Sprintf("%s (%s)", author, r.Role)
	}
	return Review{
		ID:          fmt.Sprintf("staff-%d", r.ID),
		Author:      author,
		PublishedAt: r.SubmittedAt,
		Provider:    ProviderStaffReport,
		Text:        body,
	}
}
