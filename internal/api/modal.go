package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matthumble/weightlossbot/internal/challenge"
	"github.com/matthumble/weightlossbot/internal/validate"
)

const startChallengeCallbackID = "start_challenge_modal"

// Form blocks map one-to-one onto the handler's field identifiers.
var fieldBlocks = map[string]string{
	challenge.FieldMode:    "competition_mode_block",
	challenge.FieldEndDate: "end_date_block",
}

// handleStartForm answers /start-challenge with the form view for the
// gateway to open: the two-field competition form for admins, an
// access-denied view for everyone else.
func (a *API) handleStartForm(c *gin.Context, cmd slashCommand) {
	if !a.challenge.CanStart(cmd.UserID) {
		c.JSON(http.StatusOK, gin.H{
			"trigger_id": cmd.TriggerID,
			"view":       accessDeniedView(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trigger_id": cmd.TriggerID,
		"view":       startChallengeView(),
	})
}

type viewSubmission struct {
	Type string `json:"type"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	View struct {
		CallbackID string `json:"callback_id"`
		State      struct {
			Values map[string]map[string]struct {
				SelectedOption struct {
					Value string `json:"value"`
				} `json:"selected_option"`
				SelectedDate string `json:"selected_date"`
			} `json:"values"`
		} `json:"state"`
	} `json:"view"`
}

// handleInteraction receives the start-challenge form submission. Field
// problems come back as field-level errors keyed by block; success swaps in
// a confirmation view.
func (a *API) handleInteraction(c *gin.Context) {
	var sub viewSubmission
	if err := json.Unmarshal([]byte(c.PostForm("payload")), &sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed interaction payload"})
		return
	}

	if sub.Type != "view_submission" || sub.View.CallbackID != startChallengeCallbackID {
		c.Status(http.StatusOK)
		return
	}

	req := challenge.StartRequest{UserID: sub.User.ID}
	values := sub.View.State.Values
	if v, ok := values[fieldBlocks[challenge.FieldMode]]; ok {
		req.Mode = v["competition_mode"].SelectedOption.Value
	}
	if v, ok := values[fieldBlocks[challenge.FieldEndDate]]; ok {
		req.EndDate = v["end_date"].SelectedDate
	}

	ctx := c.Request.Context()

	res, err := a.challenge.Start(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "api: start challenge failed", "error", err)
		c.JSON(http.StatusOK, gin.H{
			"response_action": "errors",
			"errors": gin.H{
				fieldBlocks[challenge.FieldMode]: "An error occurred while starting the competition. Please try again.",
			},
		})
		return
	}

	if len(res.FieldErrors) > 0 {
		blockErrors := gin.H{}
		for field, msg := range res.FieldErrors {
			blockErrors[fieldBlocks[field]] = msg
		}
		c.JSON(http.StatusOK, gin.H{
			"response_action": "errors",
			"errors":          blockErrors,
		})
		return
	}

	modeLabel := "Total Weight Loss"
	if res.Mode.String() == "percentage" {
		modeLabel = "Percentage Weight Loss"
	}

	c.JSON(http.StatusOK, gin.H{
		"response_action": "update",
		"view": gin.H{
			"type":  "modal",
			"title": plainText("Competition Started!"),
			"close": plainText("Close"),
			"blocks": []gin.H{
				section(fmt.Sprintf("✅ *Competition started successfully!*\n\n• Mode: %s\n• Start Date: %s\n• End Date: %s",
					modeLabel, validate.FormatDate(res.StartDate), validate.FormatDate(res.EndDate))),
			},
		},
	})
}

func startChallengeView() gin.H {
	return gin.H{
		"type":        "modal",
		"callback_id": startChallengeCallbackID,
		"title":       plainText("Start Weight Loss Competition"),
		"submit":      plainText("Start Competition"),
		"close":       plainText("Cancel"),
		"blocks": []gin.H{
			section("Configure the competition settings below:"),
			{"type": "divider"},
			{
				"type":     "input",
				"block_id": fieldBlocks[challenge.FieldMode],
				"label":    plainText("Competition Mode"),
				"element": gin.H{
					"type":        "static_select",
					"action_id":   "competition_mode",
					"placeholder": plainText("Select competition mode"),
					"initial_option": gin.H{
						"text":  plainText("Total Weight Loss (pounds)"),
						"value": "total",
					},
					"options": []gin.H{
						{
							"text":        plainText("Total Weight Loss (pounds)"),
							"value":       "total",
							"description": plainText("Winner loses most pounds"),
						},
						{
							"text":        plainText("Percentage Weight Loss (%)"),
							"value":       "percentage",
							"description": plainText("Winner loses highest % of body weight"),
						},
					},
				},
				"hint": plainText("Total: Winner loses most pounds. Percentage: Winner loses highest % of body weight."),
			},
			{
				"type":     "input",
				"block_id": fieldBlocks[challenge.FieldEndDate],
				"label":    plainText("End Date"),
				"element": gin.H{
					"type":        "datepicker",
					"action_id":   "end_date",
					"placeholder": plainText("Select end date"),
				},
				"hint": plainText("The competition will end on this date"),
			},
		},
	}
}

func accessDeniedView() gin.H {
	return gin.H{
		"type":  "modal",
		"title": plainText("Access Denied"),
		"close": plainText("Close"),
		"blocks": []gin.H{
			section("❌ *Unauthorized*\n\nThis command is admin-only."),
		},
	}
}

func plainText(s string) gin.H {
	return gin.H{"type": "plain_text", "text": s}
}

func section(s string) gin.H {
	return gin.H{
		"type": "section",
		"text": gin.H{"type": "mrkdwn", "text": s},
	}
}
