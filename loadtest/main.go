// Command loadtest drives a running server with pairs of users messaging
// each other over the REST API while both sides listen on the live
// channel through rtclient. It reports how many pushes actually arrived.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SAPAAAA/Roundtable-sub001/rtclient"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	PairCount = 50
	MsgCount  = 20
)

var (
	log       = logrus.New()
	delivered atomic.Int64
	sent      atomic.Int64
)

type AuthResponse struct {
	Token    string `json:"access_token"`
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type ConversationResponse struct {
	ID int `json:"conversation_id"`
}

func main() {
	log.Infof("starting load test: %d user pairs, %d messages each", PairCount, MsgCount)

	var wg sync.WaitGroup
	for i := 0; i < PairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}
	wg.Wait()

	log.Infof("done: sent=%d delivered=%d", sent.Load(), delivered.Load())
}

func runPair(pairID int) {
	userA := fmt.Sprintf("lt%da", pairID)
	userB := fmt.Sprintf("lt%db", pairID)
	pass := "password123"

	authA := authenticate(userA, pass)
	authB := authenticate(userB, pass)
	if authA == nil || authB == nil {
		return
	}

	convID := createConversation(authA.Token, authB.ID)
	if convID == 0 {
		return
	}

	// Both sides listen on the live channel.
	managerA := listen(authA.Token)
	managerB := listen(authB.Token)
	defer managerA.Disconnect()
	defer managerB.Disconnect()

	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go spamMessages(&wsWg, authA.Token, convID)
	go spamMessages(&wsWg, authB.Token, convID)
	wsWg.Wait()

	// Give the last pushes a moment to arrive before tearing down.
	time.Sleep(500 * time.Millisecond)
}

func listen(token string) *rtclient.Manager {
	manager := rtclient.NewManager(rtclient.Config{
		URL:    WSURL + "?token=" + token,
		Logger: log,
	})
	manager.Subscribe(rtclient.NewChatObserver(func(rtclient.ChatMessage) {
		delivered.Add(1)
	}, log))
	if err := manager.Connect(); err != nil {
		log.WithError(err).Warn("ws connect failed")
	}
	return manager
}

func authenticate(username, password string) *AuthResponse {
	// Register; ignore the error, the user may already exist.
	postJSON("/register", "", map[string]string{"username": username, "password": password})

	resp, err := postJSON("/login", "", map[string]string{"username": username, "password": password})
	if err != nil {
		log.WithError(err).WithField("user", username).Error("login failed")
		return nil
	}
	defer resp.Body.Close()

	var data AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil || data.Token == "" {
		log.WithField("user", username).Error("login response unusable")
		return nil
	}
	return &data
}

func createConversation(token string, targetID int) int {
	resp, err := postJSON("/api/conversations", token, map[string]int{"target_id": targetID})
	if err != nil || resp.StatusCode != http.StatusOK {
		log.WithError(err).Error("create conversation failed")
		return 0
	}
	defer resp.Body.Close()

	var data ConversationResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return data.ID
}

func spamMessages(wg *sync.WaitGroup, token string, convID int) {
	defer wg.Done()
	for i := 0; i < MsgCount; i++ {
		body := map[string]any{
			"conversation_id": convID,
			"content":         fmt.Sprintf("load test message %d", i),
		}
		if _, err := postJSON("/api/messages", token, body); err != nil {
			log.WithError(err).Warn("send failed")
			return
		}
		sent.Add(1)
		time.Sleep(10 * time.Millisecond)
	}
}

func postJSON(endpoint, token string, data any) (*http.Response, error) {
	jsonData, _ := json.Marshal(data)
	req, err := http.NewRequest("POST", BaseURL+endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}
