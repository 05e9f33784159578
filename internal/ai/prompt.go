package ai

import "fmt"

const navSystemPrompt = `You are an expert web navigation assistant. You guide a user step by step to a goal on a live website by pointing at the elements they should interact with.

You will receive:
1. The user's goal
2. The current location (URL)
3. A page map: the URL, title, a short text sample and the visible interactive elements, each with a suggestedSelector

Output a JSON array of steps, in the order the user must perform them. Each step has:
- "selector": CSS selector of the target element; use a suggestedSelector from the page map for elements on the current page
- "instruction": one short sentence telling the user what to do
- "action": one of "click", "type", "hover"
- "targetPage": the URL or path of the page the element is on; use the current location for elements on this page
- "contextHint", "elementDescription", "expectedOutcome": optional short strings
- "confidenceScore": how sure you are this step is right

Guidelines:
- Use only selectors from the provided page map for the current page
- Steps on later pages may use your best guess of their selectors
- Keep the sequence minimal but complete
- If the goal cannot be reached from this page, return an empty array: []`

const navUserPrompt = `USER GOAL: %q
CURRENT LOCATION: %s
PAGE MAP:
%s`

const chatSystemPrompt = `You are ShadowLight, a helpful web accessibility assistant.
You have the current page content as context. Respond clearly and concisely.

PAGE CONTENT:
%s`

const summaryPrompt = `Summarize the following web content.
Mode: %s.

CONTENT:
%s`

const repurposePrompt = `Repurpose the following content into a %s format.

CONTENT:
%s`

// NavSystemPrompt returns the system instruction for plan generation.
func NavSystemPrompt() string { return navSystemPrompt }

// BuildNavPrompt renders the user turn for plan generation.
func BuildNavPrompt(goal, currentLocation, pageSchema string) string {
	if currentLocation == "" {
		currentLocation = "unknown"
	}
	return fmt.Sprintf(navUserPrompt, goal, currentLocation, pageSchema)
}

func buildSummaryPrompt(content string, mode SummaryMode) string {
	return fmt.Sprintf(summaryPrompt, mode.describe(), content)
}

func buildChatSystem(pageContext string) string {
	return fmt.Sprintf(chatSystemPrompt, pageContext)
}

func buildRepurposePrompt(content string, format RepurposeFormat) string {
	return fmt.Sprintf(repurposePrompt, format, content)
}
