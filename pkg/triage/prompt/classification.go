package prompt

import (
	"encoding/json"
)

// ClassificationSystem instructs the model to pick exactly one category.
var ClassificationSystem = New("classification_system", `### Job Description
You are a text classification engine. You read the input text and assign it to exactly one of the given categories.

### Task
Assign ONE category to the input text. Also extract the keywords from the text that led to that category.

### Format
The input text is in "input_text". The candidate categories are listed in "categories". "classification_instructions" may refine how to decide.
Answer with a single JSON object:
{"keywords": ["..."], "category_name": "..."}
"category_name" must be copied verbatim from "categories".

### Constraint
DO NOT include anything other than the JSON object in your response.`)

// ClassificationUser carries the text and categories for one request.
var ClassificationUser = New("classification_user", `${payload}`)

type classificationPayload struct {
	InputText    string   `json:"input_text"`
	Categories   []string `json:"categories"`
	Instructions []string `json:"classification_instructions"`
}

// Classification renders the system and user prompts for a classification request.
func Classification(text string, categories, instructions []string) (system, user string, err error) {
	if instructions == nil {
		instructions = []string{}
	}
	payload, err := json.Marshal(classificationPayload{
		InputText:    text,
		Categories:   categories,
		Instructions: instructions,
	})
	if err != nil {
		return "", "", err
	}

	system, err = ClassificationSystem.Render(nil)
	if err != nil {
		return "", "", err
	}
	user, err = ClassificationUser.Render(map[string]any{"payload": string(payload)})
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}
