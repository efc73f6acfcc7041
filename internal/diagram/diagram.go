// Package diagram turns a diagram image into a component inventory, a causal
// step-by-step explanation, and quiz questions via three sequential model
// calls: fast vision, deep reasoning, fast formatting.
package diagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"insight-agents/internal/llm"
	"insight-agents/internal/pipeline"
)

// PipelineName identifies this pipeline in errors and logs.
const PipelineName = "diagram"

// Stage names, in execution order.
const (
	StageIdentify = "identify"
	StageExplain  = "explain"
	StageQuiz     = "quiz"
)

// visionTemperature is used for both fast-tier stages.
const visionTemperature = 0.3

// Result carries the three stage outputs.
type Result struct {
	ImageDescription   string `json:"image_description"`
	LogicalExplanation string `json:"logical_explanation"`
	QuizQuestions      string `json:"quiz_questions"`
}

type state struct {
	image []byte
	mime  string
	Result
}

// Analyzer runs the diagram pipeline against an LLM client.
type Analyzer struct {
	llm llm.Client
	log *slog.Logger
}

func NewAnalyzer(client llm.Client, log *slog.Logger) *Analyzer {
	return &Analyzer{llm: client, log: log}
}

// Analyze runs identify -> explain -> quiz. Each stage consumes the full
// output of the previous one; the first failure aborts the run.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, mime string) (Result, error) {
	if len(image) == 0 {
		return Result{}, errors.New("image required")
	}
	stages := []pipeline.Stage[state]{
		{Name: StageIdentify, Run: a.identify},
		{Name: StageExplain, Run: a.explain},
		{Name: StageQuiz, Run: a.quiz},
	}
	final, err := pipeline.Run(ctx, a.log, PipelineName, state{image: image, mime: mime}, stages)
	if err != nil {
		return Result{}, err
	}
	return final.Result, nil
}

func (a *Analyzer) identify(ctx context.Context, s state) (state, error) {
	out, err := a.llm.Generate(ctx, llm.Request{
		Prompt:      identifyPrompt,
		Image:       s.image,
		ImageMIME:   s.mime,
		Tier:        llm.TierFast,
		Temperature: visionTemperature,
	})
	if err != nil {
		return s, err
	}
	s.ImageDescription = out
	return s, nil
}

func (a *Analyzer) explain(ctx context.Context, s state) (state, error) {
	out, err := a.llm.Generate(ctx, llm.Request{
		Prompt: fmt.Sprintf(explainPromptFmt, s.ImageDescription),
		Tier:   llm.TierReasoning,
	})
	if err != nil {
		return s, err
	}
	s.LogicalExplanation = out
	return s, nil
}

func (a *Analyzer) quiz(ctx context.Context, s state) (state, error) {
	out, err := a.llm.Generate(ctx, llm.Request{
		Prompt:      fmt.Sprintf(quizPromptFmt, s.ImageDescription, s.LogicalExplanation),
		Tier:        llm.TierFast,
		Temperature: visionTemperature,
	})
	if err != nil {
		return s, err
	}
	s.QuizQuestions = out
	return s, nil
}

const identifyPrompt = `You are an expert diagram analyzer. Analyze this educational diagram image carefully.

Your task:
1. Identify ALL visible labels, components, parts, and elements in the diagram
2. Describe what each part is and its purpose
3. Note any arrows, connections, or relationships between parts
4. Identify the subject matter (biology, physics, engineering, chemistry, etc.)
5. Describe the overall structure and layout

Be thorough and detailed. List everything you can see, as this will be used to explain the diagram to a student.`

const explainPromptFmt = `You are an expert educator. Based on the following diagram analysis, create a step-by-step explanation of the process, mechanism, or concept shown in the diagram.

Diagram Analysis:
%s

Your task:
1. Explain the diagram as an interactive step-by-step story
2. Use causal reasoning: explain how one part affects another (e.g., "When Part A moves, it causes Part B to rotate because...")
3. Break down complex processes into clear, numbered steps
4. Use simple language that a student can understand
5. Highlight the key relationships and cause-effect chains
6. Explain WHY things happen, not just WHAT happens

Format your response as:
- Step 1: [Description]
- Step 2: [Description]
- etc.

Be thorough and educational. Help the student understand not just what they see, but how it all works together.`

const quizPromptFmt = `You are an expert educator creating assessment questions. Based on the diagram analysis and explanation below, generate 3 high-quality quiz questions that test the student's understanding.

Diagram Analysis:
%s

Step-by-Step Explanation:
%s

Your task:
Generate exactly 3 quiz questions that:
1. Test understanding of the key concepts shown in the diagram
2. Require the student to apply the causal relationships explained
3. Range from basic recall to application-level thinking
4. Are clear, unambiguous, and educational

Format each question as:
Question 1: [Question text]
A) [Option A]
B) [Option B]
C) [Option C]
D) [Option D]
Correct Answer: [Letter] - [Brief explanation]

Question 2: [Question text]
...

Make sure the questions are directly related to the diagram and explanation provided.`
