package types

import (
	"context"
	"encoding/json"

	"github.com/saiset-co/sai-stockwatch/utils"
)

// WatchlistsKey is the storage key holding every watchlist as one document.
const WatchlistsKey = "watchlists"

type WatchlistManager interface {
	All(ctx context.Context) (Watchlists, error)
	Summaries(ctx context.Context) ([]WatchlistSummary, error)
	Members(ctx context.Context, name string) ([]Member, error)
	ListsContaining(ctx context.Context, symbol string) ([]string, error)
	Contains(ctx context.Context, symbol string) (bool, error)
	Create(ctx context.Context, name, initialSymbol string) error
	Delete(ctx context.Context, name string) error
	Toggle(ctx context.Context, name, symbol string) (bool, error)
	Add(ctx context.Context, name, symbol string) error
	RemoveMember(ctx context.Context, name, symbol string) error
}

// Watchlists is the whole persisted document: list name to members.
type Watchlists map[string][]Member

// Member is one watchlist entry. Fields other than symbol and name are kept
// in Extra and written back as they were read.
type Member struct {
	Symbol string
	Name   string
	Extra  map[string]json.RawMessage
}

func (m Member) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(m.Extra)+2)
	for field, value := range m.Extra {
		doc[field] = value
	}

	doc["symbol"] = m.Symbol
	if m.Name != "" {
		doc["name"] = m.Name
	}

	return utils.Marshal(doc)
}

func (m *Member) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := utils.Unmarshal(data, &fields); err != nil {
		return err
	}

	*m = Member{}
	for field, value := range fields {
		switch field {
		case "symbol":
			if err := utils.Unmarshal(value, &m.Symbol); err != nil {
				return err
			}
			continue
		case "name":
			var name string
			if err := utils.Unmarshal(value, &name); err == nil {
				m.Name = name
				continue
			}
		}

		if m.Extra == nil {
			m.Extra = make(map[string]json.RawMessage)
		}
		m.Extra[field] = append(json.RawMessage(nil), value...)
	}

	return nil
}

type WatchlistSummary struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
