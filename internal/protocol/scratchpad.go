package protocol

import (
	"fmt"
	"strings"
)

const maxObservationLen = 4000

// Record is one completed tool call in the loop's working memory.
type Record struct {
	Thought     string `json:"thought,omitempty"`
	Action      string `json:"action"`
	Input       string `json:"input"`
	Observation string `json:"observation"`
}

// Scratchpad accumulates the tool calls of one loop run and renders them back
// into the prompt in protocol form.
type Scratchpad struct {
	records []Record
}

// Add appends a record, truncating very long observations.
func (s *Scratchpad) Add(r Record) {
	if len(r.Observation) > maxObservationLen {
		r.Observation = r.Observation[:maxObservationLen] + "\n...(truncated)"
	}
	s.records = append(s.records, r)
}

func (s *Scratchpad) Records() []Record {
	return append([]Record(nil), s.records...)
}

func (s *Scratchpad) Len() int { return len(s.records) }

// Last returns the most recent record.
func (s *Scratchpad) Last() (Record, bool) {
	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[len(s.records)-1], true
}

// Render writes the records in Thought/Action/Action Input/Observation form.
func (s *Scratchpad) Render() string {
	var b strings.Builder
	for _, r := range s.records {
		if r.Thought != "" {
			fmt.Fprintf(&b, "Thought: %s\n", r.Thought)
		}
		fmt.Fprintf(&b, "Action: %s\nAction Input: %s\nObservation: %s\n", r.Action, r.Input, r.Observation)
	}
	return b.String()
}

// Instructions renders the protocol description given to the model.
func Instructions(toolDescriptions string, toolNames []string) string {
	var b strings.Builder
	b.WriteString("You have access to the following tools:\n\n")
	b.WriteString(toolDescriptions)
	b.WriteString("\n\nUse the following format:\n\n")
	b.WriteString("Thought: think about what to do next\n")
	fmt.Fprintf(&b, "Action: the action to take, exactly one of [%s]\n", strings.Join(toolNames, ", "))
	b.WriteString("Action Input: a JSON object with the tool parameters\n")
	b.WriteString("Observation: the result of the action\n")
	b.WriteString("... (Thought/Action/Action Input/Observation can repeat)\n")
	b.WriteString("Thought: I now know the final answer\n")
	b.WriteString("Final Answer: the answer to the user's request\n\n")
	b.WriteString("Never write the Observation yourself. If required details are missing, ask for them in the Final Answer.")
	return b.String()
}
