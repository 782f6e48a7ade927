package naming

import "strings"

const (
	projectsSegment      = "projects/"
	topicsSegment        = "/topics/"
	subscriptionsSegment = "/subscriptions/"
)

// Topic returns the canonical name projects/{projectID}/topics/{topic}.
// Neither argument is validated.
func Topic(projectID, topic string) string {
	var sb strings.Builder
	sb.Grow(len(projectsSegment) + len(projectID) + len(topicsSegment) + len(topic))
	sb.WriteString(projectsSegment)
	sb.WriteString(projectID)
	sb.WriteString(topicsSegment)
	sb.WriteString(topic)
	return sb.String()
}

// Subscription returns the canonical name
// projects/{projectID}/subscriptions/{subscription}.
func Subscription(projectID, subscription string) string {
	var sb strings.Builder
	sb.Grow(len(projectsSegment) + len(projectID) + len(subscriptionsSegment) + len(subscription))
	sb.WriteString(projectsSegment)
	sb.WriteString(projectID)
	sb.WriteString(subscriptionsSegment)
	sb.WriteString(subscription)
	return sb.String()
}

// ProjectPrefix returns projects/{projectID}/, the prefix shared by every
// name that belongs to the project.
func ProjectPrefix(projectID string) string {
	return projectsSegment + projectID + "/"
}

// ShortName returns the last path segment of a canonical name.
func ShortName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
