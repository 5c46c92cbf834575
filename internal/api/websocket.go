// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Corphon/SlideCrafter/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
	wsSendBuffer     = 64
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket 推送的消息类型
const (
	MessageConnected  = "connected"
	MessageProgress   = "progress"
	MessageSlide      = "slide"
	MessageDeck       = "deck"
	MessageStyleGuide = "style_guide"
	MessagePong       = "pong"
	MessageError      = "error"
)

// hubClient 一个 WebSocket 连接
type hubClient struct {
	conn   *websocket.Conn
	deckID string
	send   chan []byte
}

// DeckHub 按演示文稿分组管理 WebSocket 连接
type DeckHub struct {
	mutex   sync.Mutex
	clients map[string]map[*hubClient]struct{} // deckID -> clients
	closed  bool
	logger  *utils.Logger
}

// NewDeckHub 创建连接管理器
func NewDeckHub() *DeckHub {
	return &DeckHub{
		clients: make(map[string]map[*hubClient]struct{}),
		logger:  utils.GetLogger(),
	}
}

// register 注册客户端，管理器关闭后返回 false
func (h *DeckHub) register(client *hubClient) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return false
	}
	if h.clients[client.deckID] == nil {
		h.clients[client.deckID] = make(map[*hubClient]struct{})
	}
	h.clients[client.deckID][client] = struct{}{}
	h.logger.Info("✅ WebSocket 客户端已连接", map[string]interface{}{"deck_id": client.deckID})
	return true
}

// unregister 移除客户端并关闭其发送队列，重复调用无副作用
func (h *DeckHub) unregister(client *hubClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, ok := h.clients[client.deckID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.deckID)
	}
	close(client.send)
	h.logger.Info("🔌 WebSocket 客户端已断开", map[string]interface{}{"deck_id": client.deckID})
}

func encodeMessage(deckID, msgType string, data interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type":      msgType,
		"deck_id":   deckID,
		"data":      data,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// sendTo 只发给一个客户端
func (h *DeckHub) sendTo(client *hubClient, msgType string, data interface{}) {
	msg, err := encodeMessage(client.deckID, msgType, data)
	if err != nil {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client.deckID][client]; !ok {
		return
	}
	select {
	case client.send <- msg:
	default:
	}
}

// Broadcast 向订阅该演示文稿的所有客户端推送消息，队列已满的客户端跳过
func (h *DeckHub) Broadcast(deckID, msgType string, data interface{}) {
	msg, err := encodeMessage(deckID, msgType, data)
	if err != nil {
		h.logger.Error("❌ 序列化广播消息失败", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients[deckID] {
		select {
		case client.send <- msg:
		default:
			h.logger.Warn("⚠️ 客户端消息队列已满，消息被丢弃", map[string]interface{}{"deck_id": deckID})
		}
	}
}

// ClientCount 当前连接数
func (h *DeckHub) ClientCount(deckID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[deckID])
}

// GetStatus 获取管理器状态
func (h *DeckHub) GetStatus() map[string]interface{} {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	decks := make(map[string]int, len(h.clients))
	total := 0
	for deckID, clients := range h.clients {
		decks[deckID] = len(clients)
		total += len(clients)
	}
	return map[string]interface{}{
		"total_decks":       len(h.clients),
		"total_connections": total,
		"decks":             decks,
	}
}

// Close 断开所有连接，之后的注册都会被拒绝
func (h *DeckHub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for deckID, clients := range h.clients {
		for client := range clients {
			close(client.send)
			client.conn.Close()
		}
		delete(h.clients, deckID)
	}
}

// writePump 把发送队列写入连接，并定期发送 ping
func (h *DeckHub) writePump(client *hubClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息直到连接断开；只处理 ping
func (h *DeckHub) readPump(client *hubClient) {
	defer h.unregister(client)

	client.conn.SetReadLimit(wsMaxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket 读取错误", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "ping" {
			continue
		}
		h.sendTo(client, MessagePong, nil)
	}
}

// serve 升级后的连接：注册、发送欢迎消息、进入读循环
func (h *DeckHub) serve(conn *websocket.Conn, deckID string, welcome interface{}) {
	client := &hubClient{
		conn:   conn,
		deckID: deckID,
		send:   make(chan []byte, wsSendBuffer),
	}
	if !h.register(client) {
		conn.Close()
		return
	}
	go h.writePump(client)

	h.sendTo(client, MessageConnected, welcome)
	h.readPump(client)
}
