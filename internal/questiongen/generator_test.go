package questiongen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/actprep/internal/llm"
	"github.com/abhisek/actprep/internal/subject"
	"github.com/abhisek/actprep/internal/telemetry"
)

const mathQuestion = `{
	"context": "Solve for x: 2x + 6 = 14",
	"question": "What is the value of x?",
	"options": {"A": "2", "B": "4", "C": "6", "D": "8"},
	"correct_option": "B",
	"explanation": "2x = 8, so x = 4.",
	"category": "Mathematics",
	"difficulty": "Medium"
}`

const readingQuestion = `{
	"context": "The lighthouse keeper had tended the lamp for forty years.",
	"question": "How long had the keeper tended the lamp?",
	"options": {"A": "Ten years", "B": "Twenty years", "C": "Thirty years", "D": "Forty years"},
	"correct_option": "D",
	"explanation": "The passage states forty years.",
	"category": "reading",
	"difficulty": "easy"
}`

func testInput() Input {
	return Input{
		Personal: map[subject.Subject]int{subject.Mathematics: 18, subject.Reading: 24, subject.Science: 20, subject.English: 22},
		Regional: map[subject.Subject]int{subject.Mathematics: 20, subject.Reading: 21, subject.Science: 21, subject.English: 20},
	}
}

type countingRecorder struct {
	calls map[string]int
}

func (c *countingRecorder) RecordGeneration(source string, returned, discarded int) {
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[source] += returned
}

func TestGenerate_StrictArray(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Text: "[" + mathQuestion + "," + readingQuestion + "]",
	})
	counter := &countingRecorder{}
	gen := New(mock, DefaultConfig(), WithCounter(counter))

	res, err := gen.Generate(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, SourceStrict, res.Source)
	assert.Zero(t, res.Discarded)
	require.Len(t, res.Questions, 2)

	assert.Equal(t, "B", res.Questions[0].CorrectOption)
	assert.Equal(t, "Reading", res.Questions[1].Category)
	assert.Equal(t, "Easy", res.Questions[1].Difficulty)
	assert.Equal(t, 2, counter.calls["strict"])
}

func TestGenerate_RequestShape(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: mathQuestion})
	gen := New(mock, DefaultConfig())

	input := testInput()
	input.History = []Question{{Question: "What is 3 + 4?"}}
	_, err := gen.Generate(context.Background(), input)
	require.NoError(t, err)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, "question-gen", req.Purpose)
	assert.Nil(t, req.Schema)
	assert.Equal(t, 2000, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	assert.Equal(t, systemPrompt, req.System)

	msg := req.Messages[0].Content
	assert.Contains(t, msg, "User ACT Results: Mathematics 18, Reading 24, Science 20, English 22")
	assert.Contains(t, msg, "USA Median ACT Results: Mathematics 21")
	assert.Contains(t, msg, "1. What is 3 + 4?")
}

func TestGenerate_FencedObjectWrapper(t *testing.T) {
	body := "Here you go:\n```json\n{\"questions\": [" + mathQuestion + "]}\n```\nGood luck!"
	mock := llm.NewMockProvider(llm.MockResponse{Text: body})

	res, err := New(mock, DefaultConfig()).Generate(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, SourceStrict, res.Source)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, "What is the value of x?", res.Questions[0].Question)
}

func TestGenerate_DiscardsInvalidRecords(t *testing.T) {
	missingOption := strings.Replace(mathQuestion, `"D": "8"`, `"D": ""`, 1)
	noPassage := strings.Replace(readingQuestion, "The lighthouse keeper had tended the lamp for forty years.", "", 1)
	badCategory := strings.Replace(mathQuestion, `"Mathematics"`, `"Art"`, 1)
	fifthOption := strings.Replace(mathQuestion, `"D": "8"`, `"D": "8", "E": "10"`, 1)

	body := "[" + strings.Join([]string{mathQuestion, missingOption, noPassage, badCategory, fifthOption}, ",") + "]"
	mock := llm.NewMockProvider(llm.MockResponse{Text: body})

	res, err := New(mock, DefaultConfig()).Generate(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, SourceStrict, res.Source)
	assert.Len(t, res.Questions, 1)
	assert.Equal(t, 4, res.Discarded)
}

func TestGenerate_BareFence(t *testing.T) {
	body := "```\n[" + mathQuestion + "," + readingQuestion + "]\n```"
	mock := llm.NewMockProvider(llm.MockResponse{Text: body})

	res, err := New(mock, DefaultConfig()).Generate(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, SourceStrict, res.Source)
	assert.Len(t, res.Questions, 2)
}

func TestGenerate_HeuristicContextFirst(t *testing.T) {
	body := `Context: Passage one about lighthouses.
Question: What does the keeper tend?
A) The lamp
B) The boat
C) The garden
D) The bell
Category: Reading

Context: Passage two about commas.
Question: Which sentence is punctuated correctly?
A) One
B) Two
C) Three
D) Four
Category: English`
	mock := llm.NewMockProvider(llm.MockResponse{Text: body})

	res, err := New(mock, DefaultConfig()).Generate(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, SourceHeuristic, res.Source)
	require.Len(t, res.Questions, 2)
	assert.Equal(t, "Passage one about lighthouses.", res.Questions[0].Context)
	assert.Equal(t, "Passage two about commas.", res.Questions[1].Context)
	assert.Equal(t, "English", res.Questions[1].Category)
}

func TestGenerate_HeuristicFallback(t *testing.T) {
	body := `Sure! Here are some questions.

Question: Which word best completes the sentence?
Context: The committee ___ its decision yesterday.
A) announce
B) announced
C) announcing
D) announces
Correct: B
Explanation: Past tense matches "yesterday".
Category: English
Difficulty: easy

Q: What is 7 x 8?
A. 54
B. 56
C. 58
D. 64
Answer: b) 56

Problem: Incomplete question
A) only one option`
	mock := llm.NewMockProvider(llm.MockResponse{Text: body})

	res, err := New(mock, DefaultConfig()).Generate(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, SourceHeuristic, res.Source)
	assert.Equal(t, 1, res.Discarded)
	require.Len(t, res.Questions, 2)

	first := res.Questions[0]
	assert.Equal(t, "B", first.CorrectOption)
	assert.Equal(t, "English", first.Category)
	assert.Equal(t, "Easy", first.Difficulty)
	assert.Equal(t, "The committee ___ its decision yesterday.", first.Context)

	second := res.Questions[1]
	assert.Equal(t, "56", second.Options.B)
	assert.Equal(t, "B", second.CorrectOption)
	assert.Equal(t, CategoryUnknown, second.Category)
	assert.Equal(t, "Medium", second.Difficulty)
}

func TestGenerate_ProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: errors.New("connection refused")})
	counter := &countingRecorder{}

	res, err := New(mock, DefaultConfig(), WithCounter(counter)).Generate(context.Background(), testInput())
	require.Error(t, err)

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, StageRequest, gerr.Stage)

	require.Len(t, res.Questions, 1)
	q := res.Questions[0]
	assert.True(t, q.IsError())
	assert.Equal(t, CategoryError, q.Category)
	assert.Equal(t, DifficultyNA, q.Difficulty)
	assert.Contains(t, q.Explanation, "connection refused")
	assert.Equal(t, SourceSynthetic, res.Source)
	assert.Equal(t, 1, counter.calls["synthetic"])
}

func TestGenerate_UnparseableResponse(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: "I cannot help with that."})

	res, err := New(mock, DefaultConfig()).Generate(context.Background(), testInput())
	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, StageParse, gerr.Stage)
	assert.ErrorIs(t, err, errNoQuestions)
	require.Len(t, res.Questions, 1)
	assert.True(t, res.Questions[0].IsError())
}

func TestGenerate_RecordsTelemetry(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: mathQuestion})
	timings := telemetry.NewTimings()

	_, err := New(mock, DefaultConfig(), WithRecorder(timings)).Generate(context.Background(), testInput())
	require.NoError(t, err)

	stats := timings.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, telemetry.OpQuestionsGen, stats[0].Op)
	assert.Equal(t, 1, stats[0].Calls)
}

func TestCorrectOptionSpread(t *testing.T) {
	qs := []Question{{CorrectOption: "A"}, {CorrectOption: "C"}, {CorrectOption: "C"}, {CorrectOption: "Z"}}
	assert.Equal(t, map[string]int{"A": 1, "B": 0, "C": 2, "D": 0}, CorrectOptionSpread(qs))
}
