package calendar

import (
	"github.com/bookslot/bookslot/pkg/connector"
)

// Calendar is a remote calendar connected by a subscriber. The owner never changes.
type Calendar struct {
	Id        int
	OwnerId   int
	Provider  connector.ProviderType
	Title     string
	Color     string
	Url       string
	User      string
	Password  string
	Connected bool
}

func (c Calendar) OwnedBy() int {
	return c.OwnerId
}

func (c Calendar) Credentials() connector.Credentials {
	return connector.Credentials{
		Provider:     c.Provider,
		SubscriberId: c.OwnerId,
		Url:          c.Url,
		User:         c.User,
		Password:     c.Password,
	}
}
