package raidhelper

import (
	"context"
	"fmt"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
)

// FetchServerEvents lista los eventos publicados del server configurado.
// Vienen sin signups; el detalle se pide aparte por evento.
func (c *Client) FetchServerEvents(ctx context.Context) ([]domain.RaidEvent, error) {
	var dto serverEventsDTO
	if err := c.doJSON(ctx, "GET", fmt.Sprintf("/v3/servers/%s/events", c.serverID), &dto); err != nil {
		return nil, err
	}
	out := make([]domain.RaidEvent, 0, len(dto.PostedEvents))
	for _, ev := range dto.PostedEvents {
		out = append(out, ev.toDomain())
	}
	return out, nil
}

// FetchEventDetails trae el evento completo con sus signups.
func (c *Client) FetchEventDetails(ctx context.Context, eventID string) (domain.RaidEvent, []domain.RaidSignup, error) {
	var dto eventDTO
	if err := c.doJSON(ctx, "GET", fmt.Sprintf("/v2/events/%s", eventID), &dto); err != nil {
		return domain.RaidEvent{}, nil, err
	}
	signups := make([]domain.RaidSignup, 0, len(dto.SignUps))
	for _, sg := range dto.SignUps {
		signups = append(signups, sg.toDomain(dto.ID))
	}
	return dto.toDomain(), signups, nil
}
