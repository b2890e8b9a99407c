package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

// Константы для типов сообщений WebSocket
const (
	ReservationCreatedType      = "RESERVATION_CREATED"
	ReservationStatusUpdateType = "RESERVATION_STATUS_UPDATE"
	AccountingEntryRecordedType = "ACCOUNTING_ENTRY_RECORDED"
	DocumentStatusUpdateType    = "DOCUMENT_STATUS_UPDATE"
)

// WebSocketMessage представляет формат сообщения WebSocket
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketManager управляет всеми подключениями WebSocket
type WebSocketManager struct {
	clients       map[string]map[*websocket.Conn]bool
	clientsByUser map[string]map[*websocket.Conn]bool
	register      chan *WebSocketClient
	unregister    chan *WebSocketClient
	mutex         sync.RWMutex
}

// WebSocketClient представляет клиентское соединение WebSocket
type WebSocketClient struct {
	conn     *websocket.Conn
	userID   string
	clientID string
}

// Глобальный менеджер WebSocket
var wsManager = NewWebSocketManager()

// NewWebSocketManager создает новый менеджер WebSocket
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:       make(map[string]map[*websocket.Conn]bool),
		clientsByUser: make(map[string]map[*websocket.Conn]bool),
		register:      make(chan *WebSocketClient),
		unregister:    make(chan *WebSocketClient),
	}
}

// Start запускает обработку регистраций WebSocket
func (manager *WebSocketManager) Start() {
	log.Printf("Запуск WebSocket Manager")
	go func() {
		for {
			select {
			case client := <-manager.register:
				manager.addClient(client)
			case client := <-manager.unregister:
				manager.removeClient(client)
			}
		}
	}()
}

func (manager *WebSocketManager) addClient(client *WebSocketClient) {
	manager.mutex.Lock()
	if _, ok := manager.clients[client.clientID]; !ok {
		manager.clients[client.clientID] = make(map[*websocket.Conn]bool)
	}
	manager.clients[client.clientID][client.conn] = true

	if client.userID != "" {
		if _, ok := manager.clientsByUser[client.userID]; !ok {
			manager.clientsByUser[client.userID] = make(map[*websocket.Conn]bool)
		}
		manager.clientsByUser[client.userID][client.conn] = true
	}
	manager.mutex.Unlock()
	log.Printf("Клиент зарегистрирован: ID=%s, userID=%s", client.clientID, client.userID)
}

func (manager *WebSocketManager) removeClient(client *WebSocketClient) {
	manager.mutex.Lock()

	clientID := client.clientID
	// Отключение из рассылки приходит без clientID, ищем его по соединению
	if clientID == "" {
		for id, connections := range manager.clients {
			if _, exists := connections[client.conn]; exists {
				clientID = id
				break
			}
		}
	}

	if _, ok := manager.clients[clientID]; ok {
		if _, exists := manager.clients[clientID][client.conn]; exists {
			delete(manager.clients[clientID], client.conn)
			if client.conn != nil {
				client.conn.Close()
			}
		}
		if len(manager.clients[clientID]) == 0 {
			delete(manager.clients, clientID)
		}
	}

	if client.userID != "" {
		if _, ok := manager.clientsByUser[client.userID]; ok {
			delete(manager.clientsByUser[client.userID], client.conn)
			if len(manager.clientsByUser[client.userID]) == 0 {
				delete(manager.clientsByUser, client.userID)
			}
		}
	}
	manager.mutex.Unlock()
	log.Printf("Клиент отключен: ID=%s, userID=%s", clientID, client.userID)
}

// BroadcastToUser отправляет сообщение всем подключениям конкретного пользователя
func (manager *WebSocketManager) BroadcastToUser(userID string, message *WebSocketMessage) {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	connections, exists := manager.clientsByUser[userID]
	if !exists || len(connections) == 0 {
		return
	}

	jsonMessage, err := json.Marshal(message)
	if err != nil {
		log.Printf("BroadcastToUser: Ошибка при кодировании сообщения: %v", err)
		return
	}

	for conn := range connections {
		go func(c *websocket.Conn) {
			if err := c.WriteMessage(websocket.TextMessage, jsonMessage); err != nil {
				log.Printf("BroadcastToUser: Ошибка при отправке сообщения: %v", err)
				manager.unregister <- &WebSocketClient{conn: c, userID: userID}
			}
		}(conn)
	}
}

// BroadcastAll отправляет сообщение всем подключенным клиентам.
// Используется для событий, которые должны видеть все открытые
// диспетчерские панели и приложения водителей.
func (manager *WebSocketManager) BroadcastAll(message *WebSocketMessage) {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	jsonMessage, err := json.Marshal(message)
	if err != nil {
		log.Printf("BroadcastAll: Ошибка при кодировании сообщения: %v", err)
		return
	}

	for _, connections := range manager.clients {
		for conn := range connections {
			go func(c *websocket.Conn) {
				if err := c.WriteMessage(websocket.TextMessage, jsonMessage); err != nil {
					log.Printf("BroadcastAll: Ошибка при отправке сообщения: %v", err)
				}
			}(conn)
		}
	}
}

// Handler обрабатывает подключения WebSocket
func Handler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Upgrade") != "websocket" {
			c.String(http.StatusBadRequest, "Требуется WebSocket соединение")
			return
		}

		userID, exists := c.Get("user_id")
		clientID := c.Query("client_id")

		if clientID == "" && exists {
			clientID = fmt.Sprintf("user_%v", userID)
		} else if clientID == "" {
			clientID = fmt.Sprintf("anon_%d", time.Now().UnixNano())
		}

		wsUpgrader := websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Разрешаем подключения с любых источников
			},
		}

		conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Ошибка обновления соединения до WebSocket: %v", err)
			return
		}

		client := &WebSocketClient{
			conn:     conn,
			clientID: clientID,
		}
		if exists {
			client.userID, _ = userID.(string)
		}

		wsManager.register <- client
		go handleMessages(client)
	}
}

// handleMessages обрабатывает сообщения от клиента
func handleMessages(client *WebSocketClient) {
	defer func() {
		wsManager.unregister <- client
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			break
		}

		var data map[string]interface{}
		if err := json.Unmarshal(message, &data); err != nil {
			continue
		}

		// Поддерживаем ping от клиента для контроля живости соединения
		if msgType, ok := data["type"].(string); ok && msgType == "ping" {
			pongMsg := map[string]interface{}{
				"type": "pong",
				"time": time.Now().Unix(),
			}
			pongJSON, _ := json.Marshal(pongMsg)
			if err := client.conn.WriteMessage(websocket.TextMessage, pongJSON); err != nil {
				log.Printf("Ошибка при отправке pong: %v", err)
			}
		}
	}
}

// SendReservationCreated рассылает событие о новом заказе
func SendReservationCreated(reservationID, status string) {
	wsManager.BroadcastAll(&WebSocketMessage{
		Type: ReservationCreatedType,
		Payload: map[string]interface{}{
			"reservation_id": reservationID,
			"status":         status,
		},
	})
}

// SendReservationStatusUpdate рассылает событие о смене статуса заказа
func SendReservationStatusUpdate(reservationID, oldStatus, newStatus string) {
	wsManager.BroadcastAll(&WebSocketMessage{
		Type: ReservationStatusUpdateType,
		Payload: map[string]interface{}{
			"reservation_id": reservationID,
			"old_status":     oldStatus,
			"new_status":     newStatus,
		},
	})
}

// SendAccountingEntryRecorded рассылает событие о новой бухгалтерской проводке
func SendAccountingEntryRecorded(transactionID, transactionType string, amount float64) {
	wsManager.BroadcastAll(&WebSocketMessage{
		Type: AccountingEntryRecordedType,
		Payload: map[string]interface{}{
			"transaction_id":   transactionID,
			"transaction_type": transactionType,
			"amount":           amount,
		},
	})
}

// SendDocumentStatusUpdate отправляет водителю обновление статуса документа
func SendDocumentStatusUpdate(userID string, documentID, status string) {
	wsManager.BroadcastToUser(userID, &WebSocketMessage{
		Type: DocumentStatusUpdateType,
		Payload: map[string]interface{}{
			"document_id": documentID,
			"status":      status,
		},
	})
}

// StartManager запускает менеджер WebSocket
func StartManager() {
	wsManager.Start()
}
