package models

import "time"

// Severity is the impact level of a threat record
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists the accepted severity values in ascending order
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is one of the accepted severities
func (s Severity) Valid() bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}

// AttackType is the category of attack described by a threat record
type AttackType string

const (
	AttackMalware           AttackType = "Malware"
	AttackPhishing          AttackType = "Phishing"
	AttackDDoS              AttackType = "DDoS"
	AttackExploit           AttackType = "Exploit"
	AttackInsiderThreat     AttackType = "InsiderThreat"
	AttackPhysical          AttackType = "Physical"
	AttackSupplyChain       AttackType = "SupplyChain"
	AttackWebAttack         AttackType = "WebAttack"
	AttackAccountCompromise AttackType = "AccountCompromise"
	AttackDataBreach        AttackType = "DataBreach"
	AttackRansomware        AttackType = "Ransomware"
)

// AttackTypes lists the accepted attack types
var AttackTypes = []AttackType{
	AttackMalware,
	AttackPhishing,
	AttackDDoS,
	AttackExploit,
	AttackInsiderThreat,
	AttackPhysical,
	AttackSupplyChain,
	AttackWebAttack,
	AttackAccountCompromise,
	AttackDataBreach,
	AttackRansomware,
}

// Valid reports whether a is one of the accepted attack types
func (a AttackType) Valid() bool {
	for _, v := range AttackTypes {
		if a == v {
			return true
		}
	}
	return false
}

// Location is where the incident took place
type Location struct {
	Lat     float64 `json:"lat" bson:"lat" db:"lat" jsonschema_description:"Latitude"`
	Lng     float64 `json:"lng" bson:"lng" db:"lng" jsonschema_description:"Longitude"`
	Country string  `json:"country" bson:"country" db:"country" validate:"required"`
	City    string  `json:"city" bson:"city" db:"city" validate:"required"`
}

// ThreatRecord is a persisted security incident extracted from an article
type ThreatRecord struct {
	ID              string     `json:"id" bson:"_id" db:"id"`
	Title           string     `json:"title" bson:"title" db:"title" validate:"required"`
	Description     string     `json:"description" bson:"description" db:"description" validate:"required,min=10"`
	Severity        Severity   `json:"severity" bson:"severity" db:"severity" validate:"required,oneof=low medium high critical"`
	Location        Location   `json:"location" bson:"location"`
	Timestamp       time.Time  `json:"timestamp" bson:"timestamp" db:"timestamp"`
	AffectedSystems []string   `json:"affectedSystems" bson:"affectedSystems" db:"affected_systems"`
	AttackType      AttackType `json:"attackType" bson:"attackType" db:"attack_type" validate:"required,oneof=Malware Phishing DDoS Exploit InsiderThreat Physical SupplyChain WebAttack AccountCompromise DataBreach Ransomware"`
	Source          string     `json:"source" bson:"source" db:"source" validate:"required"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

// ThreatCandidate is the loosely-typed shape a model (or an API client) hands
// us. Every field is optional here; the persistence gate decides what is
// missing.
type ThreatCandidate struct {
	ID              *string            `json:"id,omitempty"`
	Title           *string            `json:"title,omitempty"`
	Description     *string            `json:"description,omitempty"`
	Severity        *string            `json:"severity,omitempty"`
	Location        *LocationCandidate `json:"location,omitempty"`
	Timestamp       *string            `json:"timestamp,omitempty"`
	AffectedSystems []string           `json:"affectedSystems,omitempty"`
	AttackType      *string            `json:"attackType,omitempty"`
	Source          *string            `json:"source,omitempty"`
}

// LocationCandidate is the optional-field form of Location. Coordinates are
// accepted as JSON numbers or numeric strings.
type LocationCandidate struct {
	Lat     any     `json:"lat,omitempty"`
	Lng     any     `json:"lng,omitempty"`
	Country *string `json:"country,omitempty"`
	City    *string `json:"city,omitempty"`
}

// ThreatFilter narrows a threat listing. Zero values mean "any".
type ThreatFilter struct {
	Severity   Severity   `form:"severity"`
	AttackType AttackType `form:"attackType"`
	Country    string     `form:"country"`
	Limit      int        `form:"limit"`
}

// ThreatStats summarises the stored threats
type ThreatStats struct {
	Total        int            `json:"total"`
	BySeverity   map[string]int `json:"bySeverity"`
	ByAttackType map[string]int `json:"byAttackType"`
}
