package render

import "github.com/kursadbilgin/application-notifier/internal/domain"

// statusCopy holds the per-status wording. subject and intro take the
// posting title as their only verb.
type statusCopy struct {
	subject string
	heading string
	intro   string
}

var statusCopies = map[domain.ApplicationStatus]statusCopy{
	domain.StatusAccepted: {
		subject: "Congratulations! Your application for %s has been accepted",
		heading: "Congratulations!",
		intro:   "We are delighted to let you know that your application for %s has been accepted.",
	},
	domain.StatusRejected: {
		subject: "Update on your application for %s",
		heading: "Application Update",
		intro:   "Thank you for your interest in %s. After careful consideration, we will not be moving forward with your application at this time.",
	},
	domain.StatusUnderReview: {
		subject: "Your application for %s is under review",
		heading: "Your Application Is Under Review",
		intro:   "Our team is now reviewing your application for %s. We will be in touch as soon as there is news.",
	},
	domain.StatusShortlisted: {
		subject: "Good news! You have been shortlisted for %s",
		heading: "You Have Been Shortlisted",
		intro:   "Good news! Your application for %s has been shortlisted for the next stage.",
	},
	domain.StatusInterviewScheduled: {
		subject: "Interview scheduled: %s",
		heading: "Interview Scheduled",
		intro:   "We would like to invite you to an interview for %s.",
	},
	domain.StatusPending: {
		subject: "Application received: %s",
		heading: "Application Received",
		intro:   "We have received your application for %s and it is waiting for review.",
	},
}

var fallbackStatusCopy = statusCopy{
	subject: "Application status update: %s",
	heading: "Application Status Update",
	intro:   "The status of your application for %s has changed.",
}

func statusCopyFor(status domain.ApplicationStatus) statusCopy {
	if c, ok := statusCopies[status]; ok {
		return c
	}
	return fallbackStatusCopy
}
