package council

import (
	"bytes"
	"fmt"
	"text/template"
)

// Prompt di sistema per ciascuno stage
const (
	answerSystemPrompt   = "You are a helpful AI assistant."
	rankingSystemPrompt  = "You are an evaluator tasked with ranking responses to a question."
	chairmanSystemPrompt = "You are the Chairman synthesizing responses from multiple AI models."
	titleSystemPrompt    = "You generate concise titles for questions."
)

const answerWithHistoryTemplate = `You are a helpful AI assistant continuing a conversation.

Previous conversation:
{{.History}}

Please continue the conversation naturally, considering the context above.`

const rankingPromptTemplate = `You are evaluating different responses to the following question:

Question: {{.Query}}
{{if .History}}

IMPORTANT: This is part of an ongoing conversation.
Here is the conversation history for context:
{{.History}}

Consider how well each response continues the conversation naturally.{{end}}

Here are the responses from different models (anonymized):

{{range $i, $r := .Responses}}{{if $i}}

{{end}}{{$r.Label}}:
{{$r.Text}}{{end}}

Your task:
1. First, evaluate each response individually. For each response, explain what it does well and what it does poorly.
2. Consider how well each response understands and continues from the conversation context (if provided).
3. Then, at the very end of your response, provide a final ranking.

IMPORTANT: Your final ranking MUST be formatted EXACTLY as follows:
- Start with the line "FINAL RANKING:" (all caps, with colon)
- Then list the responses from best to worst as a numbered list
- Each line should be: number, period, space, then ONLY the response label (e.g., "1. Response A")
- Do not add any other text or explanations in the ranking section

Example of the correct format for your ENTIRE response:

Response A provides good detail on X but misses Y...
Response B is accurate but lacks depth on Z...
Response C offers the most comprehensive answer...

FINAL RANKING:
1. Response C
2. Response A
3. Response B

Now provide your evaluation and ranking:`

const chairmanPromptTemplate = `You are the Chairman of an LLM Council. Multiple AI models have provided responses to a user's question, and then ranked each other's responses.
{{if .History}}
CONVERSATION HISTORY:
{{.History}}
{{end}}
CURRENT QUESTION: {{.Query}}

STAGE 1 - Individual Responses:
{{range $i, $a := .Answers}}{{if $i}}

{{end}}Model: {{$a.Model}}
Response: {{$a.Text}}{{end}}

STAGE 2 - Peer Rankings:
{{range $i, $r := .Rankings}}{{if $i}}

{{end}}Model: {{$r.Model}}
Ranking: {{$r.Text}}{{end}}

Your task as Chairman is to synthesize all of this information into a single, comprehensive, accurate answer to the user's current question.

IMPORTANT: Consider the conversation history (if provided) and make sure your response:
1. Naturally continues from the previous conversation
2. Acknowledges or builds upon any relevant context
3. Provides a coherent answer that fits within the ongoing dialogue
4. Does not repeat information unnecessarily

Provide a clear, well-reasoned final answer that represents the council's collective wisdom and continues the conversation naturally:`

const titlePromptTemplate = `Generate a very short title (3-5 words maximum) that summarizes the following question.
The title should be concise and descriptive. Do not use quotes or punctuation in the title.

Question: {{.Query}}

Title:`

var (
	answerWithHistoryTmpl = template.Must(template.New("answer").Parse(answerWithHistoryTemplate))
	rankingTmpl           = template.Must(template.New("ranking").Parse(rankingPromptTemplate))
	chairmanTmpl          = template.Must(template.New("chairman").Parse(chairmanPromptTemplate))
	titleTmpl             = template.Must(template.New("title").Parse(titlePromptTemplate))
)

type labeledText struct {
	Label string
	Text  string
}

type modelText struct {
	Model string
	Text  string
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// answerMessages costruisce i messaggi dello stage 1
func answerMessages(query, history string) ([]Message, error) {
	system := answerSystemPrompt
	if history != "" {
		var err error
		system, err = render(answerWithHistoryTmpl, struct{ History string }{history})
		if err != nil {
			return nil, err
		}
	}

	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: query},
	}, nil
}

// rankingMessages costruisce i messaggi dello stage 2 con le risposte anonimizzate
func rankingMessages(query, history string, answers []ModelAnswer, registry *LabelRegistry) ([]Message, error) {
	responses := make([]labeledText, 0, len(answers))
	for _, answer := range answers {
		label, ok := registry.Label(answer.Model)
		if !ok {
			return nil, fmt.Errorf("no label for model %s", answer.Model)
		}
		responses = append(responses, labeledText{Label: label, Text: answer.Response})
	}

	prompt, err := render(rankingTmpl, struct {
		Query     string
		History   string
		Responses []labeledText
	}{query, history, responses})
	if err != nil {
		return nil, err
	}

	return []Message{
		{Role: RoleSystem, Content: rankingSystemPrompt},
		{Role: RoleUser, Content: prompt},
	}, nil
}

// chairmanMessages costruisce i messaggi dello stage 3 troncando ogni voce a maxChars
func chairmanMessages(query, history string, answers []ModelAnswer, rankings []JudgeRanking, maxChars int) ([]Message, error) {
	stage1 := make([]modelText, 0, len(answers))
	for _, answer := range answers {
		stage1 = append(stage1, modelText{Model: answer.Model, Text: truncate(answer.Response, maxChars)})
	}

	stage2 := make([]modelText, 0, len(rankings))
	for _, ranking := range rankings {
		stage2 = append(stage2, modelText{Model: ranking.Model, Text: truncate(ranking.Ranking, maxChars)})
	}

	prompt, err := render(chairmanTmpl, struct {
		Query    string
		History  string
		Answers  []modelText
		Rankings []modelText
	}{query, history, stage1, stage2})
	if err != nil {
		return nil, err
	}

	return []Message{
		{Role: RoleSystem, Content: chairmanSystemPrompt},
		{Role: RoleUser, Content: prompt},
	}, nil
}

// titleMessages costruisce i messaggi per la generazione del titolo
func titleMessages(text string) ([]Message, error) {
	prompt, err := render(titleTmpl, struct{ Query string }{text})
	if err != nil {
		return nil, err
	}

	return []Message{
		{Role: RoleSystem, Content: titleSystemPrompt},
		{Role: RoleUser, Content: prompt},
	}, nil
}
