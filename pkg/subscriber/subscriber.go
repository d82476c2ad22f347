package subscriber

import "time"

type Level string

const (
	LevelBasic Level = "basic"
	LevelPlus  Level = "plus"
	LevelPro   Level = "pro"
)

type Subscriber struct {
	Id        int
	Username  string
	Email     string
	Name      string
	Timezone  string
	Level     Level
	IsDeleted bool
	// MinimumValidIatTime is the revocation floor: tokens issued before it are rejected.
	MinimumValidIatTime *time.Time
}

func (s Subscriber) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Username
}
