package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	solveSystemPrompt      = "You are an expert instructor creating unique lab questions. Always provide clear, accurate solutions."
	difficultySystemPrompt = "You are an expert educational assessment specialist. Provide accurate difficulty ratings based on cognitive load and complexity."
)

func buildSolvePrompt(prompt QuestionPrompt) string {
	variables, err := json.MarshalIndent(prompt.Variables, "", "  ")
	if err != nil || prompt.Variables == nil {
		variables = []byte("{}")
	}

	subject := strings.TrimSpace(prompt.Subject)
	if subject == "" {
		subject = "science"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert in %s. Given this lab question:\n\n", subject)
	fmt.Fprintf(&b, "%q\n\n", prompt.QuestionText)
	b.WriteString("Please:\n")
	b.WriteString("1. Rephrase the question to make it unique while keeping the same scientific content and difficulty\n")
	b.WriteString("2. Solve the problem step by step\n")
	b.WriteString("3. Provide the final numerical answer with appropriate units\n\n")
	b.WriteString("Variables used:\n")
	b.Write(variables)
	b.WriteString("\n\nRespond in JSON format:\n")
	b.WriteString(`{
  "rephrased_question": "the rephrased version of the question",
  "solution_steps": "detailed step-by-step solution",
  "final_answer": "final numerical answer with units"
}`)
	return b.String()
}

func buildDifficultyPrompt(questions []string) string {
	var b strings.Builder
	b.WriteString("Analyze the difficulty of these lab questions and rate each on a scale of 1-10:\n\n")
	for i, question := range questions {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, question)
	}
	b.WriteString("Consider:\n")
	b.WriteString("- Mathematical complexity\n")
	b.WriteString("- Conceptual understanding required\n")
	b.WriteString("- Number of steps to solve\n")
	b.WriteString("- Prior knowledge needed\n\n")
	b.WriteString("Rating scale: 1-3 Beginner, 4-6 Intermediate, 7-9 Advanced, 10 Expert.\n\n")
	b.WriteString("Respond in JSON format:\n")
	b.WriteString(`{
  "difficulties": [array of difficulty scores],
  "reasoning": "brief explanation of the ratings"
}`)
	return b.String()
}
