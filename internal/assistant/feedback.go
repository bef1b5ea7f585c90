package assistant

import (
	"context"

	"github.com/google/uuid"
)

// HandleFeedback records a thumbs up/down button click and thanks the user
// with an ephemeral reply. Nothing here raises: malformed payloads stop with
// a warning, delivery failures are logged and swallowed.
func (h *Handler) HandleFeedback(ctx context.Context, ack AckFunc, payload FeedbackPayload) {
	h.callAck(ack, "assistant_feedback")

	req, err := NewFeedbackRequest(payload)
	if err != nil {
		h.logger.Warn("feedback_invalid", "error", err.Error())
		return
	}

	h.logger.Info("feedback_event",
		"feedback_id", "fb_"+uuid.NewString(),
		"feedback_type", req.FeedbackType,
		"user_id", req.UserID,
		"channel_id", req.ChannelID,
		"response_ts", req.ResponseTS,
		"team_id", req.TeamID,
	)

	if req.ChannelID == "" || req.ResponseTS == "" {
		// No thread to reply into; the feedback is already recorded.
		return
	}
	if err := h.slack.PostEphemeral(ctx, req.ChannelID, req.UserID, msgFeedbackThank, req.ResponseTS); err != nil {
		h.logger.Warn("feedback_ack_send_error", "user_id", req.UserID, "channel_id", req.ChannelID, "error", err.Error())
		return
	}
	h.logger.Info("feedback_ack_sent", "user_id", req.UserID, "channel_id", req.ChannelID)
}
