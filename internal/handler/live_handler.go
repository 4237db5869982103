package handler

import (
	"encoding/base64"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"speak-coach-go/internal/apperr"
	"speak-coach-go/internal/service"
	"speak-coach-go/pkg/log"
	"speak-coach-go/pkg/speech"
)

// LiveHandler 负责"一分钟练习"的流式 WebSocket 连接。
// 每条连接对应至多一个流式会话；会话只存活于连接期间，断开即销毁，不跨重连复用。
type LiveHandler struct {
	recognizer speech.Recognizer
}

// NewLiveHandler 创建一个新的 LiveHandler。
func NewLiveHandler(recognizer speech.Recognizer) *LiveHandler {
	return &LiveHandler{recognizer: recognizer}
}

type liveAudioPayload struct {
	Audio string `json:"audio"`
}

// Handle 处理一个传入的流式练习连接。
func (h *LiveHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	var aggregator *service.StreamingAggregator

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if aggregator != nil {
				log.Infof("流式会话随连接断开销毁: sessionId=%s", aggregator.Session().ID)
			}
			break
		}

		var frame eventFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			writeError(conn, apperr.CodeValidation, "malformed event frame")
			continue
		}

		switch frame.Event {
		case "live:start":
			if aggregator != nil {
				writeError(conn, apperr.CodeSessionExists, "connection already has a live session")
				continue
			}
			aggregator = service.NewStreamingAggregator(uuid.NewString())
			writeEvent(conn, "live:started", gin.H{"sessionId": aggregator.Session().ID})

		case "live:audio":
			if aggregator == nil {
				writeError(conn, apperr.CodeSessionNotFound, "no live session on this connection")
				continue
			}
			var payload liveAudioPayload
			if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.Audio == "" {
				writeError(conn, apperr.CodeValidation, "live:audio requires base64 audio")
				continue
			}
			chunk, err := base64.StdEncoding.DecodeString(payload.Audio)
			if err != nil {
				writeError(conn, apperr.CodeValidation, "audio must be base64-encoded wav")
				continue
			}
			event, err := h.recognizer.Recognize(c.Request.Context(), chunk)
			if err != nil {
				log.Errorf("流式识别失败: %v", err)
				writeError(conn, apperr.CodeProcessFailed, "speech: recognition failed")
				continue
			}
			if event == nil {
				// 分片中没有可识别的语音，不产生更新
				continue
			}
			update := aggregator.Process(*event)
			writeEvent(conn, "live:update", update)

		case "live:stop":
			if aggregator == nil {
				writeError(conn, apperr.CodeSessionNotFound, "no live session on this connection")
				continue
			}
			writeEvent(conn, "live:stopped", aggregator.Session())
			aggregator = nil

		default:
			writeError(conn, apperr.CodeValidation, "unknown event: "+frame.Event)
		}
	}
}
