// Package models defines the prospect state record owned by the conversation
// state machine. The record is persisted as an opaque JSON document keyed by
// phone number; handlers receive a copy and return a full replacement.
package models

import "time"

// ConversationState identifies the active phase of a prospect's conversation.
type ConversationState string

const (
	StateNew                   ConversationState = "new"
	StateGreeting              ConversationState = "greeting"
	StateInitialQualification  ConversationState = "initial_qualification"
	StateDeepQualification     ConversationState = "deep_qualification"
	StateQualified             ConversationState = "qualified"
	StateInvitation            ConversationState = "invitation"
	StateCheckout              ConversationState = "checkout"
	StateAppointmentScheduling ConversationState = "appointment_scheduling"
	StateEmailCollection       ConversationState = "email_collection"
	StateNurturing             ConversationState = "nurturing"
	StateFollowUp              ConversationState = "follow_up"
	StateClosed                ConversationState = "closed"
	StateCompleted             ConversationState = "completed"
)

// IsTerminal reports whether the state no longer advances on its own.
func (s ConversationState) IsTerminal() bool {
	return s == StateClosed || s == StateCompleted
}

// InvitationStep identifies the sub-step within the invitation flow.
type InvitationStep string

const (
	InvitationStepInitial        InvitationStep = "initial"
	InvitationStepDemoScheduling InvitationStep = "demo_scheduling"
	InvitationStepContactInfo    InvitationStep = "contact_info"
	InvitationStepFollowUp       InvitationStep = "follow_up"
)

// CheckoutStep identifies the sub-step within the low-value checkout flow.
type CheckoutStep string

const (
	CheckoutStepInitial             CheckoutStep = "initial"
	CheckoutStepSecondQualification CheckoutStep = "second_qualification"
	CheckoutStepInfoOffer           CheckoutStep = "info_offer"
	CheckoutStepFeedback            CheckoutStep = "feedback"
	CheckoutStepFinal               CheckoutStep = "final"
)

// ProspectType buckets a prospect by role for the qualification script.
type ProspectType string

const (
	ProspectTypeCurioso    ProspectType = "CURIOSO"
	ProspectTypeInfluencer ProspectType = "INFLUENCER"
	ProspectTypeEncargado  ProspectType = "ENCARGADO"
)

// ValueTier is the ALTO/MEDIO/BAJO classification driving invite-vs-disengage.
type ValueTier string

const (
	ValueTierAlto  ValueTier = "ALTO"
	ValueTierMedio ValueTier = "MEDIO"
	ValueTierBajo  ValueTier = "BAJO"
)

// FleetCategory buckets the declared fleet size.
type FleetCategory string

const (
	FleetCategoryPequena FleetCategory = "pequeña"
	FleetCategoryMediana FleetCategory = "mediana"
	FleetCategoryGrande  FleetCategory = "grande"
)

// UnknownSentinel marks a name or company that extraction never resolved.
const UnknownSentinel = "Desconocido"

// Slot is a candidate meeting date/time.
type Slot struct {
	Date        string    `json:"date"`      // human-readable date, e.g. "lunes 02/09"
	Time        string    `json:"time"`      // "15:00"
	DateTime    time.Time `json:"date_time"` // canonical instant in the business timezone
	IsToday     bool      `json:"is_today"`
	IsTomorrow  bool      `json:"is_tomorrow"`
	IsSimulated bool      `json:"is_simulated"`
}

// SameInstant reports whether two slots collide on their canonical datetime.
func (s Slot) SameInstant(other Slot) bool {
	return s.DateTime.Equal(other.DateTime)
}

// InterestAnalysis is produced once per qualification completion by the NLU
// oracle or its deterministic fallback.
type InterestAnalysis struct {
	HighInterest           bool   `json:"high_interest"`
	InterestScore          int    `json:"interest_score"` // 1-10
	ShouldOfferAppointment bool   `json:"should_offer_appointment"`
	Reasoning              string `json:"reasoning"`
}

// Appointment is the finally confirmed meeting.
type Appointment struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	DateTime string `json:"date_time"` // ISO 8601
	MeetLink string `json:"meet_link,omitempty"`
}

// QualificationAnswer pairs a scripted question with the stored answer.
// Kept as an ordered slice so answer order survives JSON round-trips.
type QualificationAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ProspectState is the full per-phone-number conversation record. It is
// mutated only through handler return values; callers must treat it as a
// value and persist replacements wholesale.
type ProspectState struct {
	PhoneNumber       string            `json:"phone_number"`
	ConversationState ConversationState `json:"conversation_state"`
	InvitationStep    InvitationStep    `json:"invitation_step,omitempty"`
	CheckoutStep      CheckoutStep      `json:"checkout_step,omitempty"`
	QualificationStep int               `json:"qualification_step"`

	Name          string       `json:"name,omitempty"`
	Company       string       `json:"company,omitempty"`
	IsIndependent bool         `json:"is_independent"`
	ProspectType  ProspectType `json:"prospect_type,omitempty"`

	FleetSizeRaw      string        `json:"fleet_size_raw,omitempty"`
	FleetSizeCategory FleetCategory `json:"fleet_size_category,omitempty"`
	IsDecisionMaker   bool          `json:"is_decision_maker"`
	HasUrgency        bool          `json:"has_urgency"`

	QualificationAnswers []QualificationAnswer `json:"qualification_answers,omitempty"`
	InterestAnalysis     *InterestAnalysis     `json:"interest_analysis,omitempty"`

	SuggestedSlot      *Slot        `json:"suggested_slot,omitempty"`
	SelectedSlot       *Slot        `json:"selected_slot,omitempty"`
	RejectedSlots      []Slot       `json:"rejected_slots,omitempty"`
	AppointmentDetails *Appointment `json:"appointment_details,omitempty"`
	AppointmentCreated bool         `json:"appointment_created"`

	Emails []string `json:"emails,omitempty"`

	GreetingAttempts int       `json:"greeting_attempts"`
	LastInteraction  time.Time `json:"last_interaction"`
	LastNudge        time.Time `json:"last_nudge,omitempty"`
	LastError        string    `json:"last_error,omitempty"`
}

// NewProspectState creates the record for a first-contact phone number.
func NewProspectState(phone string) *ProspectState {
	return &ProspectState{
		PhoneNumber:       phone,
		ConversationState: StateNew,
		LastInteraction:   time.Now(),
	}
}

// Clone returns a deep copy so handlers can follow copy-on-write semantics.
func (p *ProspectState) Clone() *ProspectState {
	cp := *p
	if p.QualificationAnswers != nil {
		cp.QualificationAnswers = append([]QualificationAnswer(nil), p.QualificationAnswers...)
	}
	if p.Emails != nil {
		cp.Emails = append([]string(nil), p.Emails...)
	}
	if p.RejectedSlots != nil {
		cp.RejectedSlots = append([]Slot(nil), p.RejectedSlots...)
	}
	if p.InterestAnalysis != nil {
		ia := *p.InterestAnalysis
		cp.InterestAnalysis = &ia
	}
	if p.SuggestedSlot != nil {
		s := *p.SuggestedSlot
		cp.SuggestedSlot = &s
	}
	if p.SelectedSlot != nil {
		s := *p.SelectedSlot
		cp.SelectedSlot = &s
	}
	if p.AppointmentDetails != nil {
		a := *p.AppointmentDetails
		cp.AppointmentDetails = &a
	}
	return &cp
}

// HasIdentity reports whether both name and company were resolved past the
// unknown sentinel.
func (p *ProspectState) HasIdentity() bool {
	return p.Name != "" && p.Name != UnknownSentinel &&
		p.Company != "" && p.Company != UnknownSentinel && p.Company != "Desconocida"
}

// AddEmail appends an extracted address, validating the RFC-lite pattern and
// skipping duplicates. The first stored address is the primary contact.
func (p *ProspectState) AddEmail(email string) error {
	if !IsValidEmail(email) {
		return ErrInvalidEmail
	}
	for _, e := range p.Emails {
		if e == email {
			return nil
		}
	}
	p.Emails = append(p.Emails, email)
	return nil
}

// PrimaryEmail returns the first extracted address, or "".
func (p *ProspectState) PrimaryEmail() string {
	if len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

// SuggestSlot records a pending slot proposal. A prospect holds at most one
// pending suggestion at a time; any previous one is replaced.
func (p *ProspectState) SuggestSlot(s Slot) error {
	if p.AppointmentCreated {
		return ErrAppointmentFinal
	}
	p.SuggestedSlot = &s
	return nil
}

// ConfirmSlot moves the pending suggestion into SelectedSlot and clears it.
func (p *ProspectState) ConfirmSlot() error {
	if p.SuggestedSlot == nil {
		return ErrNoSuggestedSlot
	}
	s := *p.SuggestedSlot
	p.SelectedSlot = &s
	p.SuggestedSlot = nil
	return nil
}

// RejectSlot clears the pending suggestion and remembers it so alternatives
// never repeat a datetime already shown.
func (p *ProspectState) RejectSlot() {
	if p.SuggestedSlot == nil {
		return
	}
	p.RejectedSlots = append(p.RejectedSlots, *p.SuggestedSlot)
	p.SuggestedSlot = nil
}

// WasRejected reports whether a slot's datetime has already been turned down.
func (p *ProspectState) WasRejected(s Slot) bool {
	for _, r := range p.RejectedSlots {
		if r.SameInstant(s) {
			return true
		}
	}
	return false
}

// RecordAnswer stores a qualification answer keyed by question text.
// Answers are append-only within a qualification pass.
func (p *ProspectState) RecordAnswer(question, answer string) {
	p.QualificationAnswers = append(p.QualificationAnswers, QualificationAnswer{
		Question: question,
		Answer:   answer,
	})
}

// Touch updates the interaction timestamp.
func (p *ProspectState) Touch() {
	p.LastInteraction = time.Now()
}
