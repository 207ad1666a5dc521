package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/abhisek/actprep/internal/app"
	"github.com/abhisek/actprep/internal/progression"
	"github.com/abhisek/actprep/internal/questiongen"
	"github.com/abhisek/actprep/internal/subject"
)

const missingFieldsMessage = "Missing required fields. Please provide user_results and regional_results."

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

type healthResponse struct {
	Status     string `json:"status"`
	Generation string `json:"generation"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	out := healthResponse{Status: "healthy", Generation: "unavailable"}
	if s.app.CanGenerate() {
		state, remaining := s.app.GateState()
		out.Generation = state.String()
		if remaining > 0 {
			out.RetryAfter = int(math.Ceil(remaining.Seconds()))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type generateResponse struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Questions []questiongen.Question `json:"questions,omitempty"`
	Source    questiongen.Source     `json:"source,omitempty"`
	Discarded int                    `json:"discarded,omitempty"`
}

func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if req.UserResults == nil || req.RegionalResults == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: missingFieldsMessage})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validationMessage(err)})
		return
	}

	res, err := s.app.Generate(r.Context(), app.GenerateRequest{
		Personal: scores(req.UserResults),
		Regional: scores(req.RegionalResults),
		History:  req.History,
	})

	var cooling *app.CoolingDownError
	switch {
	case errors.As(err, &cooling):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cooling.Remaining.Seconds()))))
		writeJSON(w, http.StatusTooManyRequests, generateResponse{Status: "error", Message: err.Error()})
	case errors.Is(err, app.ErrNoGenerator):
		writeJSON(w, http.StatusServiceUnavailable, generateResponse{Status: "error", Message: err.Error()})
	case err != nil:
		out := generateResponse{Status: "error", Message: err.Error()}
		if res != nil {
			out.Questions = res.Questions
			out.Source = res.Source
		}
		writeJSON(w, http.StatusInternalServerError, out)
	default:
		writeJSON(w, http.StatusOK, generateResponse{
			Status:    "success",
			Questions: res.Questions,
			Source:    res.Source,
			Discarded: res.Discarded,
		})
	}
}

type answerResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

func (s *Server) handleRecordResponse(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validationMessage(err)})
		return
	}

	ev, err := s.app.RecordAnswer(r.Context(), app.Answer{
		Subject:    req.Subject,
		Difficulty: req.Difficulty,
		Correct:    *req.Correct,
		SetNumber:  req.SetNumber,
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, app.ErrNoSink) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, errorBody{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, answerResponse{Status: "success", ID: ev.ID})
}

type subjectProgress struct {
	Subject    subject.Subject `json:"subject"`
	Latest     float64         `json:"latest"`
	Delta      float64         `json:"delta"`
	Answered   int             `json:"answered"`
	Correct    int             `json:"correct"`
	Accuracy   float64         `json:"accuracy"`
	Trajectory []float64       `json:"trajectory"`
}

type chartRow struct {
	Step   int                         `json:"step"`
	Scores map[subject.Subject]float64 `json:"scores"`
}

type sinceLast struct {
	At       time.Time                   `json:"at"`
	Answered int                         `json:"answered"`
	Changes  map[subject.Subject]float64 `json:"changes"`
}

// ProgressionResponse is the JSON form of an app.Report.
type ProgressionResponse struct {
	Subjects  []subjectProgress `json:"subjects"`
	Chart     []chartRow        `json:"chart"`
	Strongest string            `json:"strongest_subject"`
	Answered  int               `json:"total_answered"`
	Accuracy  float64           `json:"overall_accuracy"`
	Degraded  bool              `json:"degraded"`

	SinceLast *sinceLast `json:"since_last,omitempty"`

	Accepted     int            `json:"accepted"`
	Duplicates   int            `json:"duplicates"`
	Dropped      map[string]int `json:"dropped,omitempty"`
	SkippedBlobs int            `json:"skipped_blobs,omitempty"`
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	rep, err := s.app.Progress(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, NewProgressionResponse(rep))
}

// NewProgressionResponse converts rep for output.
func NewProgressionResponse(rep *app.Report) ProgressionResponse {
	out := ProgressionResponse{
		Strongest:    rep.Strongest,
		Answered:     rep.Overall.Count,
		Accuracy:     rep.Overall.Accuracy,
		Degraded:     rep.Degraded,
		Accepted:     rep.Normalization.Accepted,
		Duplicates:   rep.Normalization.Duplicates,
		Dropped:      rep.Normalization.Dropped,
		SkippedBlobs: rep.SkippedBlobs,
	}
	if rep.Previous != nil {
		out.SinceLast = &sinceLast{
			At:       rep.Previous.At,
			Answered: rep.Previous.Answered,
			Changes:  rep.SinceLast(),
		}
	}
	for _, sum := range rep.Summaries {
		st := rep.Stats[sum.Subject]
		out.Subjects = append(out.Subjects, subjectProgress{
			Subject:    sum.Subject,
			Latest:     sum.Latest,
			Delta:      sum.Delta,
			Answered:   sum.Answered,
			Correct:    st.Correct,
			Accuracy:   st.Accuracy,
			Trajectory: trajectory(rep.Progression, sum.Subject),
		})
	}
	for _, row := range rep.ChartRows {
		out.Chart = append(out.Chart, chartRow{Step: row.Step, Scores: row.Scores})
	}
	return out
}

func trajectory(p progression.Progression, s subject.Subject) []float64 {
	return append([]float64(nil), p.Trajectories[s]...)
}

func (s *Server) handleTimings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.timings.Stats())
}

func (s *Server) handleResetTimings(w http.ResponseWriter, _ *http.Request) {
	s.timings.Reset()
	w.WriteHeader(http.StatusNoContent)
}
