package extract

import (
	"fmt"
	"strings"
	"time"

	"life-os/internal/model"
)

const instructions = `You are the processing engine of a personal life-management system.
Turn one freeform capture into a single structured JSON object.

## Categories
%s

Ideas may carry a subcategory, one of: %s.
Never set a subcategory for any other category.

## Known people
%s

## Item types
- Task: something the user has to do.
- Event: something happening at a specific date (and usually time).
- Idea: something to remember for later (book, restaurant, gift, place).
- Reference: information to store (where something is, a number, a code).

## Urgency
- HIGH: real consequence if missed, or due within 2 days.
- MEDIUM: should happen this week or this month.
- LOW: nice to have, no deadline.

## Output schema
{
  "item_type": "Task | Event | Idea | Reference",
  "description": "short imperative summary",
  "category": "one of the categories above",
  "subcategory": "only for Ideas, otherwise null",
  "people": ["names"],
  "due_date": "YYYY-MM-DD or null",
  "due_time": "HH:MM (24h) or null",
  "urgency": "HIGH | MEDIUM | LOW",
  "consequence": "what happens if this is missed, or null",
  "source": "who or what recommended it, or null",
  "location": "place, or for Reference where the information lives, or null",
  "links": ["urls"],
  "notes": "anything else worth keeping, or null",
  "needs_clarification": false,
  "clarification_questions": [],
  "calendar_action": "CREATE_EVENT | CREATE_REMINDER | NONE"
}

## Rules
- Resolve relative dates ("tomorrow", "next Friday") against today's date.
- Never invent a due_time; leave it null unless the input states one.
- Use CREATE_EVENT for appointments and meetings, CREATE_REMINDER for tasks with a deadline worth a calendar entry, NONE otherwise.
- If the input is ambiguous, set needs_clarification and ask at most three short questions.
- Respond with the JSON object only.`

// BuildPrompt renders the full model prompt for rawText relative to today.
func BuildPrompt(rawText string, today time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(instructions, categoryList(), strings.Join(model.IdeaSubcategories, ", "), peopleList()))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Today's date is %s (%s).", today.Format("2006-01-02"), today.Weekday()))
	sb.WriteString("\n\nInput: ")
	sb.WriteString(rawText)
	return sb.String()
}

func categoryList() string {
	names := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func peopleList() string {
	var sb strings.Builder
	for i, p := range model.KnownPeople {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("- %s (%s)", p.Name, p.Relationship))
	}
	return sb.String()
}
