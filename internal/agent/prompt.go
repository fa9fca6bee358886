package agent

import (
	"fmt"
	"strings"

	"dataagent/internal/dataset"
)

// DefaultInstructions precede every user query. They pin the reply to one of
// the four envelope shapes.
const DefaultInstructions = `You are a data analysis assistant. How you respond depends on the user's request. Handle it in these steps:
1. Thought: decide whether the request needs a text answer, a table or a chart, and check that the data types fit.
2. Action: reply with exactly one of these formats.
   - Text answer:
     {"answer": "a clear answer of at most 50 characters"}
   - Table:
     {"table":{"columns":["column1", "column2", ...], "data":[["row1 value1", "value2", ...], ["row2 value1", "value2", ...]]}}
   - Bar chart:
     {"bar":{"columns": ["A", "B", "C", ...], "data":[35, 42, 29, ...]}}
   - Line chart:
     {"line":{"columns": ["A", "B", "C", ...], "data": [35, 42, 29, ...]}}
3. Format rules:
   - String values use double quotes.
   - Numbers are never quoted.
   - Every array is closed.
   Wrong: {'columns':['Product', 'Sales'], data:[[A001, 200]]}
   Right: {"columns":["product", "sales"], "data":[["A001", 200]]}
Do not put newlines, tabs or other formatting characters inside the final JSON.

The current user request is:
`

const reactFormat = `Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, one of [%s]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer, exactly one JSON object as described in the question`

// maxPromptTurns bounds how much conversation memory goes into one prompt.
const maxPromptTurns = 20

func systemPrompt(ds *dataset.Dataset, tools []Tool) string {
	var b strings.Builder
	if ds.IsDocument() {
		fmt.Fprintf(&b, "You are working with the text of the document %q (%s).\n", ds.Name, ds.Kind)
	} else {
		fmt.Fprintf(&b, "You are working with a table named %q with %d rows and these columns: %s.\n", ds.Name, ds.Len(), strings.Join(ds.Columns, ", "))
	}
	b.WriteString("You have access to the following tools:\n\n")
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		fmt.Fprintf(&b, "%s: %s\n", t.Name(), t.Description())
		names = append(names, t.Name())
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, reactFormat, strings.Join(names, ", "))
	if !ds.IsDocument() {
		b.WriteString("\n\nThis is the result of head with 5 rows:\n")
		b.WriteString(formatRows(ds.Columns, ds.Sample(5)))
	}
	return b.String()
}

func userPrompt(instructions, query string, history []Turn, scratchpad string) string {
	var b strings.Builder
	if len(history) > maxPromptTurns {
		history = history[len(history)-maxPromptTurns:]
	}
	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "Human: %s\nAI: %s\n", t.Question, t.Answer)
		}
		b.WriteString("\n")
	}
	b.WriteString("Begin!\n\nQuestion: ")
	b.WriteString(instructions)
	b.WriteString(query)
	b.WriteString("\n")
	b.WriteString(scratchpad)
	b.WriteString("Thought:")
	return b.String()
}
