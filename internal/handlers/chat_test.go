package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"cars24/server/internal/handlers"
	"cars24/server/internal/middleware"
	"cars24/server/internal/models"
	"cars24/server/internal/routes"
	"cars24/server/internal/store/storetest"
	"cars24/server/internal/utils"
	ws "cars24/server/internal/websocket"
)

const testSecret = "test-secret"

func newTestApp(t *testing.T) (*fiber.App, *storetest.Store) {
	t.Helper()
	st := storetest.New()
	hub := ws.NewHub(st, st)
	go hub.Run()

	app := fiber.New()
	routes.SetupRoutes(app,
		middleware.AuthRequired(testSecret),
		handlers.NewChatHandler(st, st),
		handlers.NewWebSocketHandler(hub),
	)
	return app, st
}

func authToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := utils.GenerateToken(testSecret, userID)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func doRequest(t *testing.T, app *fiber.App, method, path, userID string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if userID != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+authToken(t, userID))
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatal(err)
	}
}

func createChat(t *testing.T, app *fiber.App, buyerID, sellerID, carID string) models.Chat {
	t.Helper()
	resp := doRequest(t, app, http.MethodPost, "/api/chats", buyerID, handlers.CreateChatRequest{
		CarID:    carID,
		SellerID: sellerID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create chat status = %d", resp.StatusCode)
	}
	var body struct {
		Data struct {
			Chat models.Chat `json:"chat"`
		} `json:"data"`
	}
	decodeBody(t, resp, &body)
	return body.Data.Chat
}

func sendMessage(t *testing.T, app *fiber.App, chatID, senderID string, req handlers.SendMessageRequest) models.Message {
	t.Helper()
	resp := doRequest(t, app, http.MethodPost, "/api/chats/"+chatID+"/messages", senderID, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send message status = %d", resp.StatusCode)
	}
	var body struct {
		Data struct {
			Message models.Message `json:"message"`
		} `json:"data"`
	}
	decodeBody(t, resp, &body)
	return body.Data.Message
}

func listChats(t *testing.T, app *fiber.App, userID string) []models.ChatWithUnread {
	t.Helper()
	resp := doRequest(t, app, http.MethodGet, "/api/chats", userID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list chats status = %d", resp.StatusCode)
	}
	var body struct {
		Data struct {
			Chats []models.ChatWithUnread `json:"chats"`
		} `json:"data"`
	}
	decodeBody(t, resp, &body)
	return body.Data.Chats
}

func listMessages(t *testing.T, app *fiber.App, chatID, userID string) []models.Message {
	t.Helper()
	resp := doRequest(t, app, http.MethodGet, "/api/chats/"+chatID+"/messages", userID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list messages status = %d", resp.StatusCode)
	}
	var body struct {
		Data struct {
			Messages []models.Message `json:"messages"`
		} `json:"data"`
	}
	decodeBody(t, resp, &body)
	return body.Data.Messages
}

func TestAuthRequired(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/chats", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer not-a-token")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthViaQueryToken(t *testing.T) {
	app, _ := newTestApp(t)

	// The websocket handshake path carries the credential as a query
	// parameter; the same rule applies everywhere.
	req := httptest.NewRequest(http.MethodGet, "/api/chats?token="+authToken(t, "buyer"), nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("query token: status = %d, want 200", resp.StatusCode)
	}
}

func TestGetOrCreateChatIsIdempotent(t *testing.T) {
	app, _ := newTestApp(t)

	first := createChat(t, app, "buyer", "seller", "car-1")
	second := createChat(t, app, "buyer", "seller", "car-1")

	if first.ID != second.ID {
		t.Errorf("same triple produced different chats: %q vs %q", first.ID, second.ID)
	}
	if first.Unread.BuyerUnread != 0 || first.Unread.SellerUnread != 0 {
		t.Errorf("new chat unread = %+v, want zeros", first.Unread)
	}

	// A different car is a different chat.
	third := createChat(t, app, "buyer", "seller", "car-2")
	if third.ID == first.ID {
		t.Error("different listing must create a separate chat")
	}
}

func TestCreateChatWithYourself(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/chats", "buyer", handlers.CreateChatRequest{
		CarID:    "car-1",
		SellerID: "buyer",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("self chat: status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateChatValidation(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/chats", "buyer", handlers.CreateChatRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty body: status = %d, want 400", resp.StatusCode)
	}
}

func TestSendAndReadFlow(t *testing.T) {
	app, _ := newTestApp(t)
	chat := createChat(t, app, "buyer", "seller", "car-1")

	msg := sendMessage(t, app, chat.ID, "buyer", handlers.SendMessageRequest{Content: "Hi"})
	if msg.SenderID != "buyer" || msg.ReceiverID != "seller" {
		t.Errorf("message routing = sender %q receiver %q", msg.SenderID, msg.ReceiverID)
	}

	// The receiver's list shows their unread count, not the sender's.
	sellerChats := listChats(t, app, "seller")
	if len(sellerChats) != 1 || sellerChats[0].UnreadForUser != 1 {
		t.Fatalf("seller chats = %+v, want one chat with unread 1", sellerChats)
	}
	if sellerChats[0].LastMessage != "Hi" {
		t.Errorf("lastMessage = %q, want Hi", sellerChats[0].LastMessage)
	}

	buyerChats := listChats(t, app, "buyer")
	if buyerChats[0].UnreadForUser != 0 {
		t.Errorf("buyer unread = %d, want 0", buyerChats[0].UnreadForUser)
	}

	// Listing messages marks the reader's messages read.
	messages := listMessages(t, app, chat.ID, "seller")
	if len(messages) != 1 || messages[0].Content != "Hi" {
		t.Fatalf("messages = %+v", messages)
	}

	sellerChats = listChats(t, app, "seller")
	if sellerChats[0].UnreadForUser != 0 {
		t.Errorf("unread after read = %d, want 0", sellerChats[0].UnreadForUser)
	}
}

func TestMessagesReturnedOldestFirst(t *testing.T) {
	app, _ := newTestApp(t)
	chat := createChat(t, app, "buyer", "seller", "car-1")

	for i := 1; i <= 3; i++ {
		sendMessage(t, app, chat.ID, "buyer", handlers.SendMessageRequest{Content: fmt.Sprintf("msg-%d", i)})
	}

	messages := listMessages(t, app, chat.ID, "seller")
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	for i, msg := range messages {
		want := fmt.Sprintf("msg-%d", i+1)
		if msg.Content != want {
			t.Errorf("messages[%d] = %q, want %q", i, msg.Content, want)
		}
	}
}

func TestChatAccessDeniedForNonParticipant(t *testing.T) {
	app, _ := newTestApp(t)
	chat := createChat(t, app, "buyer", "seller", "car-1")

	resp := doRequest(t, app, http.MethodGet, "/api/chats/"+chat.ID, "eve", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("get chat: status = %d, want 403", resp.StatusCode)
	}

	resp = doRequest(t, app, http.MethodPost, "/api/chats/"+chat.ID+"/messages", "eve",
		handlers.SendMessageRequest{Content: "hi"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("send: status = %d, want 403", resp.StatusCode)
	}

	resp = doRequest(t, app, http.MethodGet, "/api/chats/"+chat.ID+"/messages", "eve", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("list: status = %d, want 403", resp.StatusCode)
	}
}

func TestGetChatNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/chats/nope", "buyer", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteMessage(t *testing.T) {
	app, st := newTestApp(t)
	chat := createChat(t, app, "buyer", "seller", "car-1")
	msg := sendMessage(t, app, chat.ID, "buyer", handlers.SendMessageRequest{Content: "oops"})

	// Only the sender may delete.
	resp := doRequest(t, app, http.MethodDelete, "/api/chats/"+chat.ID+"/messages/"+msg.ID, "seller", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("delete by receiver: status = %d, want 403", resp.StatusCode)
	}

	resp = doRequest(t, app, http.MethodDelete, "/api/chats/"+chat.ID+"/messages/"+msg.ID, "buyer", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete by sender: status = %d, want 200", resp.StatusCode)
	}

	// The tombstone keeps id and timestamps but replaces the content.
	deleted, err := st.SoftDelete(context.Background(), msg.ID, "buyer")
	if err != nil {
		t.Fatal(err)
	}
	if deleted.Content != models.DeletedMessageContent {
		t.Errorf("content = %q, want tombstone", deleted.Content)
	}
	if deleted.ID != msg.ID || !deleted.CreatedAt.Equal(msg.CreatedAt) {
		t.Error("tombstone must keep id and timestamps")
	}

	// Deleted messages disappear from the REST listing.
	if messages := listMessages(t, app, chat.ID, "seller"); len(messages) != 0 {
		t.Errorf("deleted message still listed: %+v", messages)
	}
}

func TestOfferLifecycle(t *testing.T) {
	app, _ := newTestApp(t)
	chat := createChat(t, app, "buyer", "seller", "car-1")

	msg := sendMessage(t, app, chat.ID, "seller", handlers.SendMessageRequest{
		Content:     "How about 500000?",
		MessageType: models.MessageOffer,
		Offer:       &models.Offer{Price: 500000},
	})
	if msg.Offer == nil || msg.Offer.Status != models.OfferPending {
		t.Fatalf("offer = %+v, want pending", msg.Offer)
	}

	offerPath := "/api/chats/" + chat.ID + "/messages/" + msg.ID + "/offer"

	// The sender cannot act on their own offer.
	resp := doRequest(t, app, http.MethodPut, offerPath, "seller",
		handlers.OfferResponseRequest{Status: models.OfferAccepted})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("sender response: status = %d, want 403", resp.StatusCode)
	}

	// Pending cannot be re-asserted as a response.
	resp = doRequest(t, app, http.MethodPut, offerPath, "buyer",
		handlers.OfferResponseRequest{Status: models.OfferPending})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("pending response: status = %d, want 400", resp.StatusCode)
	}

	resp = doRequest(t, app, http.MethodPut, offerPath, "buyer",
		handlers.OfferResponseRequest{Status: models.OfferAccepted})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept: status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Data struct {
			Message models.Message `json:"message"`
		} `json:"data"`
	}
	decodeBody(t, resp, &body)
	if body.Data.Message.Offer.Status != models.OfferAccepted {
		t.Errorf("offer status = %q, want accepted", body.Data.Message.Offer.Status)
	}

	// Accepted is terminal.
	resp = doRequest(t, app, http.MethodPut, offerPath, "buyer",
		handlers.OfferResponseRequest{Status: models.OfferRejected})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("second response: status = %d, want 400", resp.StatusCode)
	}
}

func TestArchiveChat(t *testing.T) {
	app, _ := newTestApp(t)
	chat := createChat(t, app, "buyer", "seller", "car-1")
	sendMessage(t, app, chat.ID, "buyer", handlers.SendMessageRequest{Content: "Hi"})

	resp := doRequest(t, app, http.MethodPut, "/api/chats/"+chat.ID+"/archive", "eve", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("archive by stranger: status = %d, want 403", resp.StatusCode)
	}

	resp = doRequest(t, app, http.MethodPut, "/api/chats/"+chat.ID+"/archive", "buyer", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("archive: status = %d, want 200", resp.StatusCode)
	}

	// Archived chats leave active lists but stay readable.
	if chats := listChats(t, app, "buyer"); len(chats) != 0 {
		t.Errorf("archived chat still listed: %+v", chats)
	}
	if messages := listMessages(t, app, chat.ID, "seller"); len(messages) != 1 {
		t.Errorf("archived chat messages = %+v, want 1", messages)
	}
}

func TestWebSocketStats(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/ws/stats", "buyer", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats: status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Data struct {
			OnlineUsers int `json:"onlineUsers"`
		} `json:"data"`
	}
	decodeBody(t, resp, &body)
	if body.Data.OnlineUsers != 0 {
		t.Errorf("onlineUsers = %d, want 0", body.Data.OnlineUsers)
	}
}
