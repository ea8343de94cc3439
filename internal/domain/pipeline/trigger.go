package pipeline

// Trigger is the outcome of a pipeline step that moves the run forward
type Trigger string

const (
	TriggerDriverAcquired Trigger = "DRIVER_ACQUIRED"
	TriggerLoggedIn       Trigger = "LOGGED_IN"
	TriggerNavigated      Trigger = "NAVIGATED"
	TriggerSearched       Trigger = "SEARCHED"
	TriggerExported       Trigger = "EXPORTED"
	TriggerNoResults      Trigger = "NO_RESULTS"
	TriggerNormalized     Trigger = "NORMALIZED"
	TriggerReconciled     Trigger = "RECONCILED"
	TriggerCleanedUp      Trigger = "CLEANED_UP"
	TriggerFinish         Trigger = "FINISH"
	TriggerFail           Trigger = "FAIL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
