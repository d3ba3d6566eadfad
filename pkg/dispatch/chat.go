package dispatch

import (
	"context"

	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/frame"
	"github.com/collabboard/server/pkg/session"
)

// handleChatMessage trims and persists a chat message, replying with the
// trimmed text and broadcasting it to the board's other peers (spec §4.D
// "chat:message" row).
func handleChatMessage(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	text, _ := stringField(req.Data, "message")
	msg, err := d.Chat.Send(boardID, client.UserID, text)
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	if err := d.DB.InsertChatMessage(msg); err != nil {
		d.Log.Error().Err(err).Str("board_id", boardID).Msg("failed to persist chat message")
	}

	d.Sessions.Send(client.ID, req.Done("chat:message", frame.Data{"message": msg}))
	d.Sessions.Broadcast(boardID, gossip("chat:message", boardID, frame.Data{"message": msg}, client.ID), client.ID)
}

// handleChatHistory answers with a board's chat log, hydrating it from
// durable storage on first touch (spec §4.D "chat:history" row).
func handleChatHistory(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	if d.chatHydrated.claim(boardID) {
		msgs, err := d.DB.ChatHistory(boardID)
		if err != nil {
			d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeDatabase), "failed to load chat history"))
			return
		}
		d.Chat.LoadAll(boardID, msgs)
	}
	d.Sessions.Send(client.ID, req.Done("chat:history", frame.Data{"messages": d.Chat.History(boardID)}))
}
