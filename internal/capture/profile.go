package capture

import "github.com/phrazzld/scry-capture/internal/config"

// Profile is the learner context sent with every analysis.
type Profile struct {
	UserID          string
	GoalID          string
	GoalDescription string
	CareerStage     string
	Policy          InterventionPolicy
	Mode            LearningMode
	KnownConcepts   []string
	WeakConcepts    []string
}

// ProfileFromConfig builds a Profile from configuration.
func ProfileFromConfig(cfg config.ProfileConfig) Profile {
	return Profile{
		UserID:          cfg.UserID,
		GoalID:          cfg.GoalID,
		GoalDescription: cfg.GoalDescription,
		CareerStage:     cfg.CareerStage,
		Policy:          InterventionPolicy(cfg.InterventionPolicy),
		Mode:            LearningMode(cfg.LearningMode),
	}
}
