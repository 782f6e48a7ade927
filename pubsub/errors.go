package pubsub

import (
	stderrors "errors"

	"google.golang.org/grpc/codes"

	"github.com/infigaming-com/go-pubsubmock/errors"
)

var (
	// ErrAlreadyExists matches, via errors.Is, every error raised for a name
	// collision on create.
	ErrAlreadyExists = errors.NewError(int64(codes.AlreadyExists), "ALREADY_EXISTS", nil)

	// ErrNotFound matches every error raised when operating on a missing
	// topic or subscription.
	ErrNotFound = errors.NewError(int64(codes.NotFound), "NOT_FOUND", nil)
)

func errTopicAlreadyExists(name string) error {
	return errors.NewStatusError(codes.AlreadyExists, "Topic already exists").WithDetails(name)
}

func errSubscriptionAlreadyExists(name string) error {
	return errors.NewStatusError(codes.AlreadyExists, "Subscription already exists").WithDetails(name)
}

func errTopicNotFound() error {
	return errors.NewStatusError(codes.NotFound, "Topic not found")
}

func errSubscriptionNotFound(name string) error {
	return errors.NewStatusError(codes.NotFound, "Subscription does not exist").WithDetails(name)
}

func IsAlreadyExists(err error) bool {
	return stderrors.Is(err, ErrAlreadyExists)
}

func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}
