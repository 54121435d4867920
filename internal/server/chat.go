package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mindpath-ai/mindpath/internal/cache"
	"github.com/mindpath-ai/mindpath/internal/profile"
	"github.com/mindpath-ai/mindpath/internal/runtime"
	"github.com/mindpath-ai/mindpath/internal/store"
	"github.com/mindpath-ai/mindpath/provider"
)

// ChatHandler runs the advisor conversation: profile snapshot → system
// prompt → completion → dual-track pipeline → {response, updates}.
type ChatHandler struct {
	Store    *store.Store
	LLM      provider.Provider
	Pipeline *profile.Pipeline
	Cache    *cache.Snapshot
	Logger   *log.Logger
}

func (h *ChatHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("", h.chat)
}

func (h *ChatHandler) chat(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req ChatRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message required")
	}
	ctx := c.Request().Context()

	profileText, ok := h.Cache.Get(ctx, userID)
	if !ok {
		snap, err := profile.LoadSnapshot(ctx, h.Store, userID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		profileText = snap.FormatForPrompt()
		h.Cache.Set(ctx, userID, profileText)
	}

	completion, err := h.LLM.ChatCompletion(ctx, buildSystemPrompt(profileText), req.Message)
	if err != nil {
		h.Logger.Printf("completion failed for user %s: %v", userID, err)
		return echo.NewHTTPError(http.StatusBadGateway, "advisor unavailable, try again later")
	}

	res, err := h.Pipeline.Handle(ctx, userID, req.Message, completion)
	if err != nil {
		h.Logger.Printf("pipeline failed for user %s: %v", userID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not process advisor reply")
	}
	if len(res.PersistErrs) > 0 {
		h.Logger.Printf("degraded persistence for user %s: %d failure(s)", userID, len(res.PersistErrs))
	}

	updates := res.Updates
	if updates == nil {
		updates = []profile.Update{}
	}
	return c.JSON(http.StatusOK, ChatResponse{Response: res.Response, Updates: updates})
}

// buildSystemPrompt wraps the user's profile snapshot in the advisor
// instructions. The dual-track output contract here must stay in sync with
// the <response>/<update> markers the parser expects.
func buildSystemPrompt(profileText string) string {
	return fmt.Sprintf(`你是用户的个人学习顾问，负责从对话中提取学习信号并更新用户档案。

%s

## 你的任务
1. 理解用户说的内容，判断是否包含与学习、成长、技能、洞察相关的信号
2. 用温暖、自然的语气回应用户（不要每次都分析，先像朋友一样聊）
3. 如果发现档案需要更新，在回复末尾输出 <update> 块

## 输出格式（必须严格遵守）
<response>
这里是给用户看的回复，自然对话风格，中文，不超过200字
</response>
<update>
[
  {
    "domain_id": 数字,
    "sub_dimension": "子维度key或标签",
    "level_label": "新层级（如 运用->熟练）",
    "evidence": "支撑这个判断的具体证据，来自用户原话",
    "cognitive_state": "clear|sensing|aware|unaware（可选）",
    "motivation_state": "driven|interested|passive|none（可选）"
  }
]
</update>

## 规则
- 如果没有可更新的内容，<update>[]</update>（空数组）
- 层级只能从档案里已有的范围升降，不能跳级（除非证据非常充分）
- 每次最多更新 3 个子维度
- 回复要优先让用户感到被理解，分析是次要的
`, profileText)
}
