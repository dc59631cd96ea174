package service

import (
	"context"
	"encoding/json"
	"fmt"
	"fyp_backend/pkg/logger"
	"fyp_backend/pkg/monitoring"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	onlineTTL      = 2 * time.Minute // 在线状态过期时间
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Client struct {
	Hub     *NotifyHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter // 限流器
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		// 限流校验 (每秒最多 30 条消息，允许突发 50 条)
		if !c.Limiter.Allow() {
			continue
		}

		// 通知通道是单向推送通道，上行只接受心跳，其余内容丢弃
		var wsMsg WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			continue
		}
		monitoring.RelayEventCounter.WithLabelValues(wsMsg.Type, "in").Inc()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// PresenceRegistry 用户ID到当前连接的映射。
// 每个用户只保留一条连接，后注册的连接覆盖先前的。
type PresenceRegistry interface {
	// Register 覆盖式注册，返回被覆盖的旧连接（没有则为 nil）
	Register(userID uint, client *Client) (prev *Client)
	// Unregister 仅当该连接仍是当前映射时移除，返回是否移除
	Unregister(client *Client) bool
	Lookup(userID uint) (*Client, bool)
	OnlineIDs() []uint
	// Drain 移除并返回全部连接，用于停机
	Drain() []*Client
}

type shard struct {
	clients map[uint]*Client
	mu      sync.RWMutex
}

// ShardedRegistry 进程内分片实现
type ShardedRegistry struct {
	shards [shardCount]*shard
}

func NewShardedRegistry() *ShardedRegistry {
	r := &ShardedRegistry{}
	for i := 0; i < shardCount; i++ {
		r.shards[i] = &shard{
			clients: make(map[uint]*Client),
		}
	}
	return r
}

func (r *ShardedRegistry) getShard(userID uint) *shard {
	return r.shards[userID%shardCount]
}

func (r *ShardedRegistry) Register(userID uint, client *Client) *Client {
	s := r.getShard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.clients[userID]
	if prev == client {
		return nil
	}
	s.clients[userID] = client
	return prev
}

func (r *ShardedRegistry) Unregister(client *Client) bool {
	s := r.getShard(client.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()
	// 连接可能已被同一用户的新连接覆盖，此时是 no-op
	if current, ok := s.clients[client.UserID]; ok && current == client {
		delete(s.clients, client.UserID)
		return true
	}
	return false
}

func (r *ShardedRegistry) Lookup(userID uint) (*Client, bool) {
	s := r.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[userID]
	return c, ok
}

func (r *ShardedRegistry) OnlineIDs() []uint {
	var ids []uint
	for i := 0; i < shardCount; i++ {
		s := r.shards[i]
		s.mu.RLock()
		for id := range s.clients {
			ids = append(ids, id)
		}
		s.mu.RUnlock()
	}
	return ids
}

func (r *ShardedRegistry) Drain() []*Client {
	var clients []*Client
	for i := 0; i < shardCount; i++ {
		s := r.shards[i]
		s.mu.Lock()
		for id, c := range s.clients {
			clients = append(clients, c)
			delete(s.clients, id)
		}
		s.mu.Unlock()
	}
	return clients
}

// NotifyHub 通知中继：维护在线注册表，向指定接收人推送工作流事件
type NotifyHub struct {
	registry   PresenceRegistry
	register   chan *Client
	unregister chan *Client
	Redis      *redis.Client
	ctx        context.Context
}

func NewNotifyHub(rdb *redis.Client, registry PresenceRegistry) *NotifyHub {
	return &NotifyHub{
		registry:   registry,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Redis:      rdb,
		ctx:        context.Background(),
	}
}

type PubSubMessage struct {
	TargetUsers []uint          `json:"targetUsers"`
	Payload     json.RawMessage `json:"payload"`
}

func (h *NotifyHub) Run() {
	pubsub := h.Redis.Subscribe(h.ctx, "relay_channel")
	go func() {
		ch := pubsub.Channel()
		for msg := range ch {
			var psMsg PubSubMessage
			if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
				logger.Log.Error("PubSub unmarshal error", zap.Error(err))
				continue
			}
			h.pushToLocalRawUsers(psMsg.TargetUsers, psMsg.Payload)
		}
	}()

	// 批量处理状态更新
	ticker := time.NewTicker(500 * time.Millisecond)
	// 状态续期定时器 (Heartbeat)
	heartbeatTicker := time.NewTicker(1 * time.Minute)
	defer func() {
		ticker.Stop()
		heartbeatTicker.Stop()
	}()

	type statusUpdate struct {
		userID uint
		status string
	}
	var pendingUpdates []statusUpdate

	for {
		select {
		case client := <-h.register:
			prev := h.registry.Register(client.UserID, client)
			if prev != nil {
				// 单连接策略：挤掉同一用户的旧连接
				close(prev.Send)
			} else {
				monitoring.RelayOnlineUsers.Inc()
			}
			pendingUpdates = append(pendingUpdates, statusUpdate{client.UserID, "online"})

		case client := <-h.unregister:
			if h.registry.Unregister(client) {
				close(client.Send)
				monitoring.RelayOnlineUsers.Dec()
				pendingUpdates = append(pendingUpdates, statusUpdate{client.UserID, "offline"})
			}

		case <-heartbeatTicker.C:
			// 为本地在线用户批量续期
			h.refreshOnlineStatus()

		case <-ticker.C:
			if len(pendingUpdates) == 0 {
				continue
			}

			pipe := h.Redis.Pipeline()
			for _, update := range pendingUpdates {
				key := fmt.Sprintf("user:online:%d", update.userID)
				if update.status == "online" {
					pipe.Set(h.ctx, key, "true", onlineTTL)
				} else {
					pipe.Del(h.ctx, key)
				}
			}
			_, err := pipe.Exec(h.ctx)
			if err != nil {
				logger.Log.Error("Redis pipeline error", zap.Error(err))
			}
			pendingUpdates = pendingUpdates[:0]
		}
	}
}

// refreshOnlineStatus 刷新当前实例所有在线用户的过期时间
func (h *NotifyHub) refreshOnlineStatus() {
	ids := h.registry.OnlineIDs()
	if len(ids) == 0 {
		return
	}
	pipe := h.Redis.Pipeline()
	for _, userID := range ids {
		pipe.Expire(h.ctx, fmt.Sprintf("user:online:%d", userID), onlineTTL)
	}
	pipe.Exec(h.ctx)
	logger.Log.Debug("Refreshed online status", zap.Int("count", len(ids)))
}

// 关闭所有连接并清理在线状态
func (h *NotifyHub) Stop() {
	logger.Log.Info("NotifyHub stopping: clearing online status and closing connections...")

	clients := h.registry.Drain()
	for _, client := range clients {
		close(client.Send)
	}

	if len(clients) > 0 {
		pipe := h.Redis.Pipeline()
		for _, client := range clients {
			pipe.Del(h.ctx, fmt.Sprintf("user:online:%d", client.UserID))
		}
		pipe.Exec(h.ctx)
	}

	monitoring.RelayOnlineUsers.Set(0) // 停机时清空指标
	logger.Log.Info("NotifyHub stopped", zap.Int("closedConnections", len(clients)))
}

// Push 向指定接收人推送事件。经由 Redis 发布，多实例部署时各实例各自投递本地连接。
func (h *NotifyHub) Push(userIDs []uint, msg WSMessage) {
	msgBytes, _ := json.Marshal(msg)
	psMsg := PubSubMessage{
		TargetUsers: userIDs,
		Payload:     msgBytes,
	}
	payload, _ := json.Marshal(psMsg)
	h.Redis.Publish(h.ctx, "relay_channel", payload)
	monitoring.RelayEventCounter.WithLabelValues(msg.Type, "out").Inc()
}

func (h *NotifyHub) pushToLocalRawUsers(userIDs []uint, payload []byte) {
	for _, id := range userIDs {
		client, ok := h.registry.Lookup(id)
		if !ok {
			continue
		}
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *NotifyHub) IsUserOnline(userID uint) bool {
	// 查本地注册表
	if _, ok := h.registry.Lookup(userID); ok {
		return true
	}

	// 查 Redis (多实例部署)
	val, err := h.Redis.Get(h.ctx, fmt.Sprintf("user:online:%d", userID)).Result()
	return err == nil && val == "true"
}

func ServeWs(hub *NotifyHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(30), 50),
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
