package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/biodoia/goleapcouncil/internal/conversation"
	"github.com/biodoia/goleapcouncil/internal/council"
	"github.com/gofiber/fiber/v3"
)

// SendMessageRequest corpo delle route di messaggio
type SendMessageRequest struct {
	Content string `json:"content"`
}

// UpdateTitleRequest corpo della route di aggiornamento titolo
type UpdateTitleRequest struct {
	Title string `json:"title"`
}

func (g *Gateway) handleRoot(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "LLM Council API",
	})
}

// handleHealth endpoint di health check con ping del database
func (g *Gateway) handleHealth(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := g.db.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "unhealthy",
			"database": err.Error(),
		})
	}

	resp := fiber.Map{
		"status":    "healthy",
		"database":  "ok",
		"timestamp": time.Now().Unix(),
		"version":   Version,
	}
	if g.health != nil {
		resp["providers"] = g.health.Snapshot()
	}
	return c.JSON(resp)
}

func (g *Gateway) handleListConversations(c fiber.Ctx) error {
	list, err := g.service.Store().List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (g *Gateway) handleCreateConversation(c fiber.Ctx) error {
	conv, err := g.service.Store().Create(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(conv)
}

func (g *Gateway) handleGetConversation(c fiber.Ctx) error {
	conv, err := g.service.Store().Get(c.Context(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(conv)
}

func (g *Gateway) handleDeleteConversation(c fiber.Ctx) error {
	id := c.Params("id")

	deleted, err := g.service.Store().Delete(c.Context(), id)
	if err != nil {
		return mapError(err)
	}

	g.logger.Info().Str("conversation_id", id).Msg("Conversation deleted")

	return c.JSON(fiber.Map{
		"status":     "success",
		"message":    fmt.Sprintf("Conversation '%s' deleted successfully", deleted.Title),
		"deleted_id": id,
	})
}

func (g *Gateway) handleUpdateTitle(c fiber.Ctx) error {
	var req UpdateTitleRequest
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	id := c.Params("id")
	if err := g.service.Store().UpdateTitle(c.Context(), id, req.Title); err != nil {
		return mapError(err)
	}

	g.logger.Info().Str("conversation_id", id).Str("title", req.Title).Msg("Title updated")

	return c.JSON(fiber.Map{
		"status":  "success",
		"title":   req.Title,
		"message": "Title updated successfully",
	})
}

func (g *Gateway) handleSendMessage(c fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := g.service.SendMessage(c.Context(), c.Params("id"), req.Content)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(result)
}

// handleSendMessageStream invia gli eventi della run come Server-Sent Events
func (g *Gateway) handleSendMessageStream(c fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	// Il writer gira dopo il ritorno dell'handler: il context dello
	// stream è legato alla connessione, non alla richiesta
	ctx, cancel := context.WithCancel(context.Background())

	id := c.Params("id")
	events, err := g.service.SendMessageStream(ctx, id, req.Content)
	if err != nil {
		cancel()
		return mapError(err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		g.writeEvents(w, id, events)
	})
}

// writeEvents scrive gli eventi in formato SSE finché il canale è aperto.
// Al primo errore di scrittura ritorna subito: il resto della run viene
// scartato dal service quando il suo context termina.
func (g *Gateway) writeEvents(w *bufio.Writer, id string, events <-chan council.Event) {
	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			g.logger.Error().Err(err).Str("type", string(ev.Type)).Msg("Failed to encode stream event")
			continue
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err == nil {
			err = w.Flush()
		}
		if err != nil {
			g.logger.Info().Str("conversation_id", id).Msg("Stream client disconnected")
			return
		}
	}
}

func (g *Gateway) handleStats(c fiber.Ctx) error {
	stats, err := g.service.Store().Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// handleDebugConversation restituisce il record completo di una conversazione
func (g *Gateway) handleDebugConversation(c fiber.Ctx) error {
	conv, err := g.service.Store().Get(c.Context(), c.Params("id"))
	if errors.Is(err, conversation.ErrNotFound) {
		return c.JSON(fiber.Map{"error": "Conversation not found"})
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"id":             conv.ID,
		"title":          conv.Title,
		"messages_count": len(conv.Messages),
		"created_at":     conv.CreatedAt,
		"updated_at":     conv.UpdatedAt,
		"all_data":       conv,
	})
}
