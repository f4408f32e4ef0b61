package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gradticket-bot/internal/command"
	"gradticket-bot/internal/markdown"
	"gradticket-bot/internal/matcher"
	"gradticket-bot/internal/model"
)

const (
	subjectProcessed       = "Successfully Processed Request"
	subjectDeleted         = "Successfully Deleted Record"
	subjectInvalidCommand  = "Invalid Command"
	subjectMissingCeremony = "Missing Ceremony in Command"
	subjectInvalidCeremony = "Invalid Ceremony Date in Command"
	subjectMatch           = "It's a match!"
)

func renderConfirmation(cmd command.NewRecord) string {
	return fmt.Sprintf(`Your request has been processed. Here is your profile:

* **User:** %s
* **Date:** %s
* **Operation:** %s
* **Amount:** %d


I will try to find other users who can help you %s those tickets. If I find any, I'll send you a list of links
to their Reddit user profiles. From there you can send them private messages to discuss %sing the tickets.
`, cmd.User, cmd.Date, cmd.Operation, cmd.Amount, cmd.Operation, cmd.Operation)
}

func renderDeleteConfirmation() string {
	return markdown.Paragraph("Your graduation ticket record has been deleted from the database. " +
		"You will no longer be considered when I try to match buyers and sellers of " +
		"graduation tickets. Feel free to sign up again at any time.")
}

func renderResolveConfirmation(otherUser string, amount *int) string {
	body := fmt.Sprintf("You have successfully resolved a transaction with /u/%s", otherUser)
	if amount != nil {
		body += fmt.Sprintf(" for %d tickets.", *amount)
	} else {
		body += ". Since no ticket amount was specified, I will assume you bought or sold all of their tickets. " +
			"If this is not accurate, please delete your record with the delete command and create a new " +
			"one with your updated buy/sell amount."
	}
	return body
}

func resolveConfirmationSubject(otherUser string) string {
	return fmt.Sprintf("Resolved Transaction with /u/%s", otherUser)
}

func renderInvalidCommand(err *command.InvalidCommandError) string {
	body := markdown.Paragraph("Uh oh! You sent an invalid command in your message. Here is what you sent me:")
	body += markdown.List(markdown.Items(strings.Split(err.MessageBody, "\n")...))
	body += markdown.Paragraph("Try another command.")
	return body
}

func renderMissingCeremonyDate(err *command.MissingCeremonyDateError) string {
	body := markdown.Paragraph(fmt.Sprintf("Oh no! You want to %s %d tickets, but you didn't specify which ceremony you "+
		"wish to attend. Please send another command and include the ceremony date. "+
		"Your choices are:", err.Operation, err.Amount))
	body += markdown.List(markdown.Items(err.Choices...))
	body += markdown.Paragraph("I recommend copying and pasting one of those dates when you write your new " +
		"command so that I don't get confused and put the wrong date by your name in " +
		"my database. I'm usually pretty good about parsing dates, but better safe " +
		"than sorry!")
	return body
}

func renderInvalidCeremonyDate(err *command.InvalidCeremonyDateError) string {
	body := markdown.Paragraph("Uh oh! Your last command included a date on which there are no ceremonies " +
		"scheduled. Your last command was:")
	body += markdown.CodeBlock(fmt.Sprintf("%s %d %s", err.Operation, err.Amount, err.GivenDate))
	body += markdown.Paragraph("Here are your choices:")
	body += markdown.List(markdown.Items(err.Choices...))
	body += markdown.Paragraph("You may try again with one of those dates.")
	return body
}

func renderMatchNotification(trigger string, match matcher.Match) string {
	operation := match.Operation
	other := operation.Opposite()

	body := markdown.Paragraph(fmt.Sprintf("Good news! I found some students who are trying to %s "+
		"graduation tickets. Now you should visit their profiles and send "+
		"them private messages to discuss %sing the tickets.", other, operation))
	body += markdown.Paragraph(fmt.Sprintf("If you end up %sing tickets from anyone, please let me "+
		"know! Here's how you \"resolve\" a purchase:", operation))
	body += markdown.CodeBlock(fmt.Sprintf("%s resolve <number> <%ser_username>", trigger, other))
	body += markdown.Paragraph(fmt.Sprintf("For example, `%s resolve 5 /u/jpfau` means you "+
		"%s 5 tickets from the user jpfau. It's up to you to help keep my ticket system "+
		"working!", trigger, operation.PastTense()))
	body += markdown.Paragraph(fmt.Sprintf("Anyway, here is the list of %sers:", other))

	parties := make([]string, 0, len(match.CounterParties))
	for _, party := range match.CounterParties {
		parties = append(parties, fmt.Sprintf("**/u/%s** is %sing **%d** tickets",
			party.UserName, party.Operation, party.Amount))
	}
	body += markdown.List(markdown.Items(parties...))

	return body
}

// renderListing builds the megathread body: the instructions followed by
// the current buyer and seller tables.
func renderListing(trigger, deleteCommand string, buyers, sellers []*model.TicketRecord) string {
	body := markdown.Paragraph("Hello! I am FAUbot, and welcome to the Graduation Ticket Megathread! I have " +
		"created this post to help people buy and sell graduation tickets to each other. " +
		"If you already know the drill, you may see the current lists of buyers and " +
		"sellers at the end of this post, and feel free to send me new commands. If you " +
		"don't know what I'm talking about, keep reading to learn how to interact with me.")

	body += markdown.Header("Instructions", 1)
	body += markdown.List([]markdown.ListItem{
		{
			Text: "Send me commands in any message that will reach my inbox, such as:",
			Sub: []string{
				"A private message",
				"A comment on this megathread",
				"A reply to any of my existing posts or comments",
			},
		},
		{Text: "I will not check anywhere but my inbox, so any commands in messages or comments to other people will be ignored."},
	})

	body += markdown.Header("New Users", 2)
	body += markdown.Paragraph("To add yourself to the database, which allows me to generate the buyer/seller " +
		"lists in this thread, send me a \"New User\" command.")
	body += markdown.List(markdown.Items(
		"Format: "+markdown.CodeBlock(trigger+" [buy|sell] [amount] [date]"),
		"Example: "+markdown.CodeBlock(trigger+" buy 5 December 16, 2016"),
	))

	body += markdown.Header("Resolving Transactions", 2)
	body += markdown.Paragraph("If you find another Redditor who wants to buy or sell tickets from you, you " +
		"can update both your current buy/sell amounts by sending a \"Resolve\" command.")
	body += markdown.List(markdown.Items(
		"Format: "+markdown.CodeBlock(trigger+" resolve [amount] [other_redditor]"),
		"Example: "+markdown.CodeBlock(trigger+" resolve 2 /u/jpfau"),
	))
	body += markdown.Paragraph("Please make sure only one person sends me a resolve command. If you both send " +
		"it, I will count it twice (I am still in beta and this is a known bug).")

	body += markdown.Header("Deleting Users", 2)
	body += markdown.Paragraph("To delete yourself, send the delete command:")
	body += markdown.Paragraph(markdown.CodeBlock(deleteCommand))

	body += markdown.HorizontalRule()

	tableHeader := []string{"Username", "Ceremony Date", "Amount"}

	body += markdown.Header("Buyers", 1)
	if rows := listingRows(buyers); len(rows) > 0 {
		body += markdown.Table(tableHeader, rows)
	} else {
		body += markdown.Paragraph("There are no buyers at this time. Check again soon!")
	}

	body += markdown.Header("Sellers", 1)
	if rows := listingRows(sellers); len(rows) > 0 {
		body += markdown.Table(tableHeader, rows)
	} else {
		body += markdown.Paragraph("There are no sellers at this time. Check again soon!")
	}

	return body
}

func listingRows(records []*model.TicketRecord) [][]string {
	sorted := make([]*model.TicketRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CeremonyDate != sorted[j].CeremonyDate {
			return sorted[i].CeremonyDate > sorted[j].CeremonyDate
		}
		return sorted[i].Amount > sorted[j].Amount
	})

	rows := make([][]string, 0, len(sorted))
	for _, record := range sorted {
		rows = append(rows, []string{
			"/u/" + record.UserName,
			record.CeremonyDate,
			strconv.Itoa(record.Amount),
		})
	}
	return rows
}
