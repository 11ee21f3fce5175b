package httpserver

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/robalobadob/uwguessr/internal/daily"
	"github.com/robalobadob/uwguessr/internal/session"
)

type modePath struct {
	Mode string `path:"mode" enum:"daily,random"`
}

type leaderboardQuery struct {
	Date  string `query:"date" description:"YYYY-MM-DD in America/New_York; defaults to today"`
	Limit int    `query:"limit" minimum:"1" maximum:"100"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "UW Guessr API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the UW Guessr campus location game.")

	// GET /health
	getHealth, _ := r.NewOperationContext(http.MethodGet, "/health")
	getHealth.SetSummary("Health check")
	getHealth.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealth.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealth)

	// POST /auth/token
	postToken, _ := r.NewOperationContext(http.MethodPost, "/auth/token")
	postToken.SetSummary("Issue identity token")
	postToken.SetDescription("Signs the anonymous player id into a bearer token. Sets the uwguessr_token cookie.")
	postToken.AddRespStructure(TokenResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postToken)

	// POST /game/{mode}/load and /new
	for _, p := range []struct{ path, summary, desc string }{
		{"/game/{mode}/load", "Load match", "Redirects to results when today's daily is done, resumes saved progress, or starts a new match."},
		{"/game/{mode}/new", "New match", "Requests a fresh start, then loads. Daily progress for today is still resumed."},
	} {
		op, _ := r.NewOperationContext(http.MethodPost, p.path)
		op.SetSummary(p.summary)
		op.SetDescription(p.desc)
		op.AddReqStructure(modePath{})
		op.AddRespStructure(session.Decision{}, openapi.WithHTTPStatus(http.StatusOK))
		op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
		op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
		_ = r.AddOperation(op)
	}

	// GET /game/{mode}/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/game/{mode}/state")
	getState.SetSummary("Current match")
	getState.AddReqStructure(modePath{})
	getState.AddRespStructure(session.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getState)

	// POST /game/{mode}/guess
	postGuess, _ := r.NewOperationContext(http.MethodPost, "/game/{mode}/guess")
	postGuess.SetSummary("Place guess")
	postGuess.SetDescription("Places or moves the pin for the current round.")
	postGuess.AddReqStructure(struct {
		modePath
		GuessRequest
	}{})
	postGuess.AddRespStructure(ActionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postGuess)

	// POST /game/{mode}/{start,submit,next,map}
	for _, p := range []struct{ path, summary string }{
		{"/game/{mode}/start", "Start round timer"},
		{"/game/{mode}/submit", "Submit guess"},
		{"/game/{mode}/next", "Next round"},
		{"/game/{mode}/map", "Toggle map size"},
	} {
		op, _ := r.NewOperationContext(http.MethodPost, p.path)
		op.SetSummary(p.summary)
		op.AddReqStructure(modePath{})
		op.AddRespStructure(ActionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
		op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
		_ = r.AddOperation(op)
	}

	// GET /results/{mode}
	getResults, _ := r.NewOperationContext(http.MethodGet, "/results/{mode}")
	getResults.SetSummary("Last completed results")
	getResults.AddReqStructure(modePath{})
	getResults.AddRespStructure(ResultsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getResults.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getResults)

	// POST /daily/submit
	postSubmit, _ := r.NewOperationContext(http.MethodPost, "/daily/submit")
	postSubmit.SetSummary("Submit daily score")
	postSubmit.SetDescription("Submits today's completed daily match under a display name. Requires Bearer token.")
	postSubmit.AddReqStructure(SubmitRequest{})
	postSubmit.AddRespStructure(daily.Entry{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSubmit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSubmit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postSubmit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postSubmit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postSubmit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	_ = r.AddOperation(postSubmit)

	// GET /daily/leaderboard
	getLB, _ := r.NewOperationContext(http.MethodGet, "/daily/leaderboard")
	getLB.SetSummary("Daily leaderboard")
	getLB.AddReqStructure(leaderboardQuery{})
	getLB.AddRespStructure(LeaderboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getLB.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getLB)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
