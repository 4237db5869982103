// Package handler 包含了处理 HTTP/WebSocket 请求的控制器逻辑。
package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"speak-coach-go/internal/apperr"
	"speak-coach-go/internal/model"
	"speak-coach-go/internal/service"
	"speak-coach-go/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// eventFrame 事件帧的统一封装：{"event": "...", "data": {...}}。
type eventFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ChatHandler 负责处理会话模式的 WebSocket 连接。
// 协议事件与失败语义由 ChatService 决定，这里只做帧与载荷的转换。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type startPayload struct {
	Mode   string `json:"mode"`
	UserID string `json:"userId"`
}

type audioPayload struct {
	ConversationID string `json:"conversationId"`
	Audio          string `json:"audio"`
}

type endPayload struct {
	ConversationID string `json:"conversationId"`
}

// Handle 处理一个传入的会话 WebSocket 连接。
// 每条连接同一时刻至多绑定一个活跃会话；断开只解除绑定，会话本身仍可按 id 继续。
func (h *ChatHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("会话连接已建立: %s", c.ClientIP())

	// 连接到会话的绑定表；读循环单线程，不需要加锁
	boundConversationID := ""

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if boundConversationID != "" {
				log.Warnf("连接断开，解除会话绑定（会话保留在存储中）: conversationId=%s", boundConversationID)
			}
			break
		}

		var frame eventFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			writeError(conn, apperr.CodeValidation, "malformed event frame")
			continue
		}

		switch frame.Event {
		case "chat:start":
			boundConversationID = h.handleStart(c, conn, frame.Data, boundConversationID)
		case "chat:audio":
			h.handleAudio(c, conn, frame.Data, boundConversationID)
		case "chat:end":
			boundConversationID = h.handleEnd(c, conn, frame.Data, boundConversationID)
		default:
			writeError(conn, apperr.CodeValidation, "unknown event: "+frame.Event)
		}
	}
}

// handleStart 处理 chat:start，返回新的绑定会话 id（失败时返回原值）。
func (h *ChatHandler) handleStart(c *gin.Context, conn *websocket.Conn, data json.RawMessage, bound string) string {
	if bound != "" {
		writeError(conn, apperr.CodeSessionExists, "connection already has an active conversation")
		return bound
	}

	var payload startPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		writeError(conn, apperr.CodeValidation, "invalid chat:start payload")
		return bound
	}
	switch payload.Mode {
	case model.ModeFreeTalk, model.ModeReflective, model.ModeProfessional:
	default:
		writeError(conn, apperr.CodeValidation, "mode must be one of free_talk, reflective, professional")
		return bound
	}

	result, err := h.chatService.Start(c.Request.Context(), payload.Mode, payload.UserID)
	if err != nil {
		writeServiceError(conn, err)
		return bound
	}

	writeEvent(conn, "chat:started", gin.H{
		"conversationId": result.ConversationID,
		"greeting": gin.H{
			"text":        result.Greeting,
			"audioBase64": result.GreetingAudioBase64,
		},
	})
	return result.ConversationID
}

func (h *ChatHandler) handleAudio(c *gin.Context, conn *websocket.Conn, data json.RawMessage, bound string) {
	var payload audioPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" || payload.Audio == "" {
		writeError(conn, apperr.CodeValidation, "chat:audio requires conversationId and audio")
		return
	}
	if bound == "" || payload.ConversationID != bound {
		writeError(conn, apperr.CodeSessionNotFound, "no active conversation bound to this connection")
		return
	}
	audio, err := base64.StdEncoding.DecodeString(payload.Audio)
	if err != nil {
		writeError(conn, apperr.CodeValidation, "audio must be base64-encoded wav")
		return
	}

	// 先发处理中通知，客户端可以立即渲染进度
	writeEvent(conn, "chat:processing", gin.H{"conversationId": payload.ConversationID})

	result, err := h.chatService.ProcessTurn(c.Request.Context(), service.TurnInput{
		ConversationID: payload.ConversationID,
		Audio:          audio,
	})
	if err != nil {
		writeServiceError(conn, err)
		return
	}

	writeEvent(conn, "chat:turn", gin.H{
		"userMessage":      result.UserMessage,
		"assistantMessage": result.AssistantMessage,
		"audioBase64":      result.AudioBase64,
	})
}

// handleEnd 处理 chat:end，成功后解除绑定。
func (h *ChatHandler) handleEnd(c *gin.Context, conn *websocket.Conn, data json.RawMessage, bound string) string {
	var payload endPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		writeError(conn, apperr.CodeValidation, "chat:end requires conversationId")
		return bound
	}

	writeEvent(conn, "chat:generating-summary", gin.H{"conversationId": payload.ConversationID})

	summary, err := h.chatService.End(c.Request.Context(), payload.ConversationID)
	if err != nil {
		writeServiceError(conn, err)
		return bound
	}

	writeEvent(conn, "chat:summary", gin.H{
		"conversationId": payload.ConversationID,
		"summary":        summary,
	})
	if payload.ConversationID == bound {
		return ""
	}
	return bound
}

// writeEvent 下发一条事件帧。写失败只记日志：结果无法送达但不影响会话状态。
func writeEvent(conn *websocket.Conn, event string, data interface{}) {
	frame := gin.H{"event": event, "data": data}
	b, err := json.Marshal(frame)
	if err != nil {
		log.Errorf("序列化事件帧失败: event=%s err=%v", event, err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("下发事件失败（结果丢弃）: event=%s err=%v", event, err)
	}
}

func writeError(conn *websocket.Conn, code, message string) {
	writeEvent(conn, "chat:error", gin.H{"code": code, "message": message})
}

// writeServiceError 把业务错误映射为带稳定错误码的 chat:error。
func writeServiceError(conn *websocket.Conn, err error) {
	code := apperr.CodeOf(err)
	if code == apperr.CodeInternal {
		log.Error("会话处理出现内部错误", err)
	} else {
		log.Infof("会话操作失败: code=%s err=%v", code, err)
	}
	writeError(conn, code, apperr.MessageOf(err))
}
