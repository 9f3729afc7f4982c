package store

import "time"

type StatType string

const (
	StatMood          StatType = "mood"
	StatEnergy        StatType = "energy"
	StatActivity      StatType = "activity"
	StatVoiceMinutes  StatType = "voiceMinutes"
	StatOnlineMinutes StatType = "onlineMinutes"
)

// StatTypes lists every stat a custom rule may reference.
var StatTypes = []StatType{StatMood, StatEnergy, StatActivity, StatVoiceMinutes, StatOnlineMinutes}

func (s StatType) Valid() bool {
	for _, known := range StatTypes {
		if s == known {
			return true
		}
	}
	return false
}

type Operator string

const (
	OpGreaterOrEqual Operator = ">="
	OpGreater        Operator = ">"
	OpLessOrEqual    Operator = "<="
	OpLess           Operator = "<"
	OpEqual          Operator = "=="
)

var Operators = []Operator{OpGreaterOrEqual, OpGreater, OpLessOrEqual, OpLess, OpEqual}

func (o Operator) Valid() bool {
	for _, known := range Operators {
		if o == known {
			return true
		}
	}
	return false
}

// MemberStats is the per-member stat record written by the stats subsystem.
// LastRoleUpdate is the only column owned by the role engine.
type MemberStats struct {
	GuildID        string
	UserID         string
	Mood           float64
	Energy         float64
	Activity       float64
	ChaosRole      string
	ChaosExpiresAt *time.Time
	VoiceMinutes   float64
	OnlineMinutes  float64
	LastRoleUpdate *time.Time
	UpdatedAt      time.Time
}

// CustomRoleRule grants RoleID while StatType compared with Value holds.
// DurationMinutes is only meaningful for temporary rules; zero means unset.
type CustomRoleRule struct {
	ID              int64
	GuildID         string
	RoleID          string
	StatType        StatType
	Operator        Operator
	Value           float64
	IsTemporary     bool
	DurationMinutes int
	Enabled         bool
	CreatedAt       time.Time
}

type AssignmentKey struct {
	GuildID string
	UserID  string
	RuleID  int64
}

// RoleAssignment is a ledger row. A nil ExpiresAt marks a permanent grant.
type RoleAssignment struct {
	GuildID    string
	UserID     string
	RuleID     int64
	RoleID     string
	AssignedAt time.Time
	ExpiresAt  *time.Time
}

func (a RoleAssignment) Key() AssignmentKey {
	return AssignmentKey{GuildID: a.GuildID, UserID: a.UserID, RuleID: a.RuleID}
}
