package raidhelper

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
)

// flexInt: RaidHelper a veces manda números como string ("1753"), a veces
// como número. Tragamos los dos.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

func (f flexInt) timePtr() *time.Time {
	if f == 0 {
		return nil
	}
	t := time.Unix(int64(f), 0).UTC()
	return &t
}

// --- Eventos (v3 servers/{id}/events) ---
type serverEventsDTO struct {
	PostedEvents []eventDTO `json:"postedEvents"`
}

type eventDTO struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	LeaderID    string  `json:"leaderId"`
	LeaderName  string  `json:"leaderName"`
	ChannelID   string  `json:"channelId"`
	ChannelName string  `json:"channelName"`
	StartTime   flexInt `json:"startTime"`
	EndTime     flexInt `json:"endTime"`
	CloseTime   flexInt `json:"closingTime"`
	LastUpdated flexInt `json:"lastUpdated"`
	TemplateID  string  `json:"templateId"`
	SignUpCount flexInt `json:"signUpCount"`

	SignUps []signupDTO `json:"signUps"` // solo en el detalle (v2)
}

type signupDTO struct {
	ID        flexInt `json:"id"`
	UserID    string  `json:"userId"`
	Name      string  `json:"name"`
	ClassName string  `json:"className"`
	SpecName  string  `json:"specName"`
	EntryTime flexInt `json:"entryTime"`
	Position  flexInt `json:"position"`
}

func (d eventDTO) toDomain() domain.RaidEvent {
	return domain.RaidEvent{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		LeaderID:    d.LeaderID,
		LeaderName:  d.LeaderName,
		ChannelID:   d.ChannelID,
		ChannelName: d.ChannelName,
		StartTime:   time.Unix(int64(d.StartTime), 0).UTC(),
		EndTime:     d.EndTime.timePtr(),
		CloseTime:   d.CloseTime.timePtr(),
		LastUpdated: d.LastUpdated.timePtr(),
		TemplateID:  d.TemplateID,
		SignupCount: int(d.SignUpCount),
	}
}

// signupStatus: RaidHelper codifica bench/tentative/ausencia en el className;
// cualquier clase de verdad cuenta como titular.
func signupStatus(className string) string {
	switch strings.ToLower(className) {
	case "absence":
		return "absence"
	case "bench":
		return "bench"
	case "tentative":
		return "tentative"
	case "late":
		return "late"
	default:
		return "primary"
	}
}

func (d signupDTO) toDomain(eventID string) domain.RaidSignup {
	return domain.RaidSignup{
		EventID:   eventID,
		UserID:    d.UserID,
		UserName:  d.Name,
		EntryTime: time.Unix(int64(d.EntryTime), 0).UTC(),
		Status:    signupStatus(d.ClassName),
		ClassName: d.ClassName,
		SpecName:  d.SpecName,
		Position:  int(d.Position),
	}
}
