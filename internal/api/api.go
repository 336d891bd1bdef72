package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/millionaire/internal/domain"
	"github.com/victornm/millionaire/internal/errors"
	"github.com/victornm/millionaire/internal/event"
	"github.com/victornm/millionaire/internal/leaderboard"
	"github.com/victornm/millionaire/internal/session"
)

type Config struct {
	HTTP         gin.IRouter
	EventBus     *event.Bus
	Session      *session.Service
	Leaderboard  *leaderboard.Service
	Redis        Redis
	PubsubPrefix string
	// Secret verifies the HS256 bearer tokens identifying users.
	Secret []byte
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	ss *session.Service
	ls *leaderboard.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		ss:     c.Session,
		ls:     c.Leaderboard,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// HTTP APIs
	r := c.HTTP.Group("/", Authenticate(c.Secret))
	r.POST("/games", a.CreateGame)
	r.GET("/games/:id", a.GetGame)
	r.PUT("/games/:id/answer", a.SubmitAnswer)
	r.PUT("/games/:id/help", a.UseHelp)
	r.PUT("/games/:id/take_money", a.TakeMoney)
	r.GET("/users/me", a.GetProfile)
	r.GET("/leaderboard", a.GetLeaderboard)

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameGameFinished, func(ctx context.Context, e event.Event) error {
		return a.PublishGameFinished(ctx, e.(domain.EventGameFinished))
	})
	c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
	})

	return a
}

func (a *API) CreateGame(c *gin.Context) {
	g, err := a.ss.CreateGame(c.Request.Context(), session.CreateGameRequest{
		UserID: userID(c),
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, a.gameView(g))
}

func (a *API) GetGame(c *gin.Context) {
	g, err := a.ss.GetGame(c.Request.Context(), session.GetGameRequest{
		GameID: c.Param("id"),
		UserID: userID(c),
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, a.gameView(g))
}

type SubmitAnswerRequest struct {
	Letter string `json:"letter" binding:"required"`
}

type SubmitAnswerResponse struct {
	Correct bool `json:"correct"`
	// CorrectAnswerKey and CorrectAnswer are only shown after a wrong answer.
	CorrectAnswerKey string `json:"correct_answer_key,omitempty"`
	CorrectAnswer    string `json:"correct_answer,omitempty"`
	Game             Game   `json:"game"`
}

func (a *API) SubmitAnswer(c *gin.Context) {
	var req SubmitAnswerRequest
	if !bind(c, &req) {
		return
	}

	res, err := a.ss.SubmitAnswer(c.Request.Context(), session.SubmitAnswerRequest{
		GameID: c.Param("id"),
		UserID: userID(c),
		Letter: req.Letter,
	})
	if err != nil {
		abort(c, err)
		return
	}

	resp := SubmitAnswerResponse{
		Correct: res.Correct,
		Game:    a.gameView(res.Game),
	}
	if !res.Correct {
		resp.CorrectAnswerKey = res.CorrectAnswerKey.Upper()
		resp.CorrectAnswer = res.CorrectAnswer
	}

	c.JSON(http.StatusOK, resp)
}

type UseHelpRequest struct {
	HelpType string `json:"help_type" binding:"required"`
}

func (a *API) UseHelp(c *gin.Context) {
	var req UseHelpRequest
	if !bind(c, &req) {
		return
	}

	g, err := a.ss.UseHelp(c.Request.Context(), session.UseHelpRequest{
		GameID: c.Param("id"),
		UserID: userID(c),
		Kind:   req.HelpType,
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, a.gameView(g))
}

func (a *API) TakeMoney(c *gin.Context) {
	g, err := a.ss.TakeMoney(c.Request.Context(), session.TakeMoneyRequest{
		GameID: c.Param("id"),
		UserID: userID(c),
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, a.gameView(g))
}

func (a *API) GetProfile(c *gin.Context) {
	p, err := a.ss.GetProfile(c.Request.Context(), session.GetProfileRequest{
		UserID: userID(c),
	})
	if err != nil {
		abort(c, err)
		return
	}

	resp := Profile{
		UserID:  p.UserID,
		Balance: p.Balance.String(),
		Games:   make([]Game, 0, len(p.Games)),
	}
	for _, g := range p.Games {
		resp.Games = append(resp.Games, a.gameView(g))
	}

	c.JSON(http.StatusOK, resp)
}

type GetLeaderboardRequest struct {
	Limit int `form:"limit"`
}

func (a *API) GetLeaderboard(c *gin.Context) {
	var req GetLeaderboardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid query: %v", err)))
		return
	}

	l, err := a.ls.GetLeaderboard(c.Request.Context(), leaderboard.GetLeaderboardRequest{
		Limit: req.Limit,
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, leaderboardView(*l))
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid request body: %v", err)))
		return false
	}
	return true
}

type ErrorResponse struct {
	Error *errors.Error `json:"error"`
}

// abort writes err with the status of its code. Causes of internal errors are logged, never sent.
func abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), ErrorResponse{Error: e})
}
