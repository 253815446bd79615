package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/matthumble/weightlossbot/internal/challenge"
	"github.com/matthumble/weightlossbot/internal/domain"
	"github.com/matthumble/weightlossbot/internal/leaderboard"
	"github.com/matthumble/weightlossbot/internal/validate"
)

const resetAnnouncement = "🔄 *Challenge Reset*\n\n" +
	"The challenge has been reset. All participant data has been cleared. " +
	"Participants can now set new baseline weights to start fresh!"

// Top placements get medals, the rest numbers.
func medal(rank int) string {
	switch rank {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	}
	return fmt.Sprintf("%d.", rank+1)
}

// formatLeaderboardMessage renders the on-demand broadcast: top five
// entries, deadline status line, usage footer.
func formatLeaderboardMessage(l domain.Leaderboard, deadline time.Time) string {
	var b strings.Builder
	b.WriteString("📊 *Weight Loss Challenge Leaderboard*\n\n")

	if len(l.Entries) == 0 {
		b.WriteString("No participants yet. Set your baseline weight to get started!")
		return b.String()
	}

	if !deadline.IsZero() {
		days := validate.DaysUntil(validate.Today(), deadline)
		b.WriteString(challenge.StatusLine(deadline, days))
		b.WriteString("\n\n")
	}

	for i, e := range l.Top(5) {
		fmt.Fprintf(&b, "%s %s\n", medal(i), leaderboard.FormatEntry(e, l.Mode))
	}

	b.WriteString("\n_Use `baseline [weight]lbs` to set your starting weight, and `checkin [weight]lbs` to log your progress!_")
	return b.String()
}

// formatFinalMessage renders the celebration broadcast with the complete,
// untruncated standings.
func formatFinalMessage(l domain.Leaderboard, deadline time.Time) string {
	if len(l.Entries) == 0 {
		return "🎉 *Challenge Complete!*\n\nNo participants in this challenge."
	}

	var b strings.Builder
	b.WriteString("🎉 *Challenge Complete! Final Results*\n\n")

	if !deadline.IsZero() {
		fmt.Fprintf(&b, "Challenge ended on %s\n\n", validate.FormatDate(deadline))
	}

	for i, e := range l.Entries {
		fmt.Fprintf(&b, "%s %s\n", medal(i), leaderboard.FormatEntry(e, l.Mode))
	}

	b.WriteString("\n🎊 _Congratulations to everyone who participated! Great job on your progress!_")
	return b.String()
}

// formatStartAnnouncement renders the competition kickoff broadcast.
func formatStartAnnouncement(e domain.EventChallengeStarted) string {
	modeDescription := "Total Weight Loss (pounds)"
	modeExplanation := "This competition is based on total weight lost. The person who loses the most pounds wins!"
	if e.Mode == domain.ModePercentage {
		modeDescription = "Percentage Weight Loss (%)"
		modeExplanation = "This competition is based on percentage of body weight lost. " +
			"This makes it fair for everyone regardless of starting weight! " +
			"The person who loses the highest percentage of their starting weight wins."
	}

	var b strings.Builder
	b.WriteString("🎉 *Weight Loss Challenge Started!*\n\n")
	b.WriteString("📅 *Competition Details:*\n")
	fmt.Fprintf(&b, "• Start Date: %s\n", validate.FormatDate(e.StartDate))
	fmt.Fprintf(&b, "• End Date: %s\n", validate.FormatDate(e.EndDate))
	fmt.Fprintf(&b, "• Mode: %s\n", modeDescription)
	fmt.Fprintf(&b, "• Duration: %d days\n\n", validate.DaysBetween(e.StartDate, e.EndDate))
	b.WriteString("🏆 *How It Works:*\n")
	b.WriteString(modeExplanation)
	b.WriteString("\n\n📝 *Getting Started:*\n")
	b.WriteString("1. Set your baseline weight by typing:\n   `baseline 200lbs`\n   (Replace 200 with your starting weight)\n\n")
	b.WriteString("2. Log your progress by typing:\n   `checkin 195lbs`\n   (Replace 195 with your current weight)\n\n")
	b.WriteString("3. View the leaderboard anytime:\n   `/leaderboard`\n\n")
	b.WriteString("💡 *Tips:*\n")
	b.WriteString("• You can set your baseline and log checkins in DMs with the bot or in any channel\n")
	b.WriteString("• Check in regularly to track your progress\n")
	b.WriteString("• The leaderboard shows the top 5 participants\n")
	if e.Mode == domain.ModePercentage {
		b.WriteString("• Example: If you start at 200lbs and lose 10lbs, that's 5% weight loss\n")
	}
	b.WriteString("\nGood luck everyone! Let's crush our goals! 💪")

	return b.String()
}
