package types

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiWeekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyCustom   Frequency = "custom"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	}
	return false
}

// IntervalUnit is the unit of a custom delivery interval.
type IntervalUnit string

const (
	IntervalUnitDays   IntervalUnit = "days"
	IntervalUnitWeeks  IntervalUnit = "weeks"
	IntervalUnitMonths IntervalUnit = "months"
)

func (u IntervalUnit) Valid() bool {
	switch u {
	case IntervalUnitDays, IntervalUnitWeeks, IntervalUnitMonths:
		return true
	}
	return false
}

// DecisionAction is a customer's answer to a delivery reminder.
type DecisionAction string

const (
	DecisionActionContinue DecisionAction = "continue"
	DecisionActionPause    DecisionAction = "pause"
	DecisionActionCancel   DecisionAction = "cancel"
)

func (a DecisionAction) Valid() bool {
	switch a {
	case DecisionActionContinue, DecisionActionPause, DecisionActionCancel:
		return true
	}
	return false
}

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonCreate       SubscriptionChangeReason = "create"
	SubscriptionChangeReasonPause        SubscriptionChangeReason = "pause"
	SubscriptionChangeReasonResume       SubscriptionChangeReason = "resume"
	SubscriptionChangeReasonCancel       SubscriptionChangeReason = "cancel"
	SubscriptionChangeReasonDecision     SubscriptionChangeReason = "decision"
	SubscriptionChangeReasonMaterialize  SubscriptionChangeReason = "materialize"
	SubscriptionChangeReasonPauseElapsed SubscriptionChangeReason = "pauseElapsed"
)
