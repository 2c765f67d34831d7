// Package scraper reads the members that joined the target server from the
// external scraper service, over HTTP or over the MQTT broker.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/goccy/go-json"
)

const (
	StatsTopic      = "scraper/stats"
	NewMembersTopic = "scraper/members/new"
)

type statsResponse struct {
	NewMembers int `json:"new_members"`
}

type membersResponse struct {
	NewMemberIDs []ID `json:"new_member_ids"`
}

// ID accepts snowflakes encoded either as JSON strings or numbers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*id = ID(v)
		return nil
	}
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return fmt.Errorf("scraper: id inválido %s", s)
	}
	*id = ID(s)
	return nil
}

func flatten(ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, string(id))
		}
	}
	return out
}

// HTTPSource queries the scraper REST API.
type HTTPSource struct {
	base   string
	client *http.Client
}

var _ blacklist.MemberSource = (*HTTPSource)(nil)

// NewHTTPSource uses client for every call; pass an httpx client to get retries.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{base: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *HTTPSource) NewMemberCount(ctx context.Context) (int, error) {
	var stats statsResponse
	if err := s.get(ctx, "/stats", &stats); err != nil {
		return 0, err
	}
	return stats.NewMembers, nil
}

func (s *HTTPSource) NewMembers(ctx context.Context) ([]string, error) {
	var members membersResponse
	if err := s.get(ctx, "/members/new", &members); err != nil {
		return nil, err
	}
	return flatten(members.NewMemberIDs), nil
}

func (s *HTTPSource) get(ctx context.Context, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return fmt.Errorf("scraper: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.External("scraper "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.External("scraper "+path, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return errors.External("scraper "+path, fmt.Errorf("respuesta inválida: %w", err))
	}
	return nil
}

// Requester is the request/response half of the MQTT communicator
type Requester interface {
	Request(ctx context.Context, topic string, payload, dst interface{}) error
}

// MQTTSource asks the scraper through the broker
type MQTTSource struct {
	requester Requester
}

var _ blacklist.MemberSource = (*MQTTSource)(nil)

func NewMQTTSource(r Requester) *MQTTSource {
	return &MQTTSource{requester: r}
}

func (s *MQTTSource) NewMemberCount(ctx context.Context) (int, error) {
	var stats statsResponse
	if err := s.requester.Request(ctx, StatsTopic, nil, &stats); err != nil {
		return 0, errors.External("mqtt "+StatsTopic, err)
	}
	return stats.NewMembers, nil
}

func (s *MQTTSource) NewMembers(ctx context.Context) ([]string, error) {
	var members membersResponse
	if err := s.requester.Request(ctx, NewMembersTopic, nil, &members); err != nil {
		return nil, errors.External("mqtt "+NewMembersTopic, err)
	}
	return flatten(members.NewMemberIDs), nil
}
