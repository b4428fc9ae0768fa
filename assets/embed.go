// assets/embed.go
//
// Embedded default data files: the level catalog and the vocabulary quiz
// bank. Both can be overridden at runtime (LEVELS_FILE / QUIZ_FILE).
package assets

import "embed"

//go:embed levels.yaml questions.yaml
var FS embed.FS

// LevelsYAML returns the embedded level catalog.
func LevelsYAML() ([]byte, error) {
	return FS.ReadFile("levels.yaml")
}

// QuestionsYAML returns the embedded quiz bank.
func QuestionsYAML() ([]byte, error) {
	return FS.ReadFile("questions.yaml")
}
