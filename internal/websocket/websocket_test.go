package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndRemoveClient(t *testing.T) {
	manager := NewWebSocketManager()

	client := &WebSocketClient{clientID: "user_1", userID: "1"}
	manager.addClient(client)

	require.Len(t, manager.clients, 1)
	require.Len(t, manager.clientsByUser, 1)

	manager.removeClient(client)

	assert.Empty(t, manager.clients)
	assert.Empty(t, manager.clientsByUser)
}

func TestRemoveClientResolvesMissingClientID(t *testing.T) {
	manager := NewWebSocketManager()

	manager.addClient(&WebSocketClient{clientID: "user_1", userID: "1"})

	// Отключение после ошибки записи приходит только с соединением
	// и userID, без clientID
	manager.removeClient(&WebSocketClient{userID: "1"})

	assert.Empty(t, manager.clients)
	assert.Empty(t, manager.clientsByUser)
}
