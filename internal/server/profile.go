package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mindpath-ai/mindpath/internal/profile"
	"github.com/mindpath-ai/mindpath/internal/runtime"
	"github.com/mindpath-ai/mindpath/internal/store"
)

// ProfileHandler serves the read-side profile views: the aggregated domain
// overview and the recent conversation history.
type ProfileHandler struct {
	Store *store.Store
}

func (h *ProfileHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.GET("", h.get)
}

func (h *ProfileHandler) RegisterConversations(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.GET("", h.conversations)
}

func (h *ProfileHandler) get(c echo.Context) error {
	userID := c.Get("user_id").(string)
	snap, err := profile.LoadSnapshot(c.Request().Context(), h.Store, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ProfileResponse{Domains: aggregateDomains(snap)})
}

// aggregateDomains groups assessments per domain with the average score
// rounded to one decimal. Assessments arrive ordered by domain_id, so a
// single pass preserves that order.
func aggregateDomains(snap profile.Snapshot) []DomainView {
	prioByDomain := make(map[int]store.DomainPriorityRecord, len(snap.Priorities))
	for _, p := range snap.Priorities {
		prioByDomain[p.DomainID] = p
	}

	domains := []DomainView{}
	for _, a := range snap.Assessments {
		if len(domains) == 0 || domains[len(domains)-1].DomainID != a.DomainID {
			d := DomainView{DomainID: a.DomainID, DomainName: a.DomainName, SubDims: []SubDimensionView{}}
			if p, ok := prioByDomain[a.DomainID]; ok {
				d.PriorityScore = p.PriorityScore
				d.PriorityNotes = p.PriorityNotes
			}
			domains = append(domains, d)
		}
		d := &domains[len(domains)-1]
		d.SubDims = append(d.SubDims, SubDimensionView{
			Key:             a.SubDimension,
			IsCustom:        a.IsCustom,
			LevelLabel:      a.LevelLabel,
			LevelScore:      a.LevelScore,
			ContentLayer:    a.ContentLayer,
			LearningNature:  a.LearningNature,
			CognitiveState:  a.CognitiveState,
			MotivationState: a.MotivationState,
		})
	}
	for i := range domains {
		var sum int
		for _, s := range domains[i].SubDims {
			sum += s.LevelScore
		}
		if n := len(domains[i].SubDims); n > 0 {
			domains[i].AvgScore = math.Round(float64(sum)/float64(n)*10) / 10
		}
	}
	return domains
}

func (h *ProfileHandler) conversations(c echo.Context) error {
	userID := c.Get("user_id").(string)
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	recs, err := h.Store.ListConversations(c.Request().Context(), userID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	turns := make([]ConversationView, 0, len(recs))
	for _, r := range recs {
		turns = append(turns, ConversationView{
			ID:            r.ID,
			Role:          r.Role,
			Content:       r.Content,
			TriggerMode:   r.TriggerMode,
			ProfileUpdate: r.ProfileUpdate,
			CreatedAt:     r.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, ConversationsResponse{Turns: turns})
}
