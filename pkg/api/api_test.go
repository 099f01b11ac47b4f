package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/davsync/pkg/errors"
)

func TestMarshalError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		expErr    *Error
		expStatus int
	}{
		{
			name:      "Nil",
			err:       nil,
			expErr:    nil,
			expStatus: http.StatusOK,
		},
		{
			name:      "Sync in progress",
			err:       errors.ErrSyncInProgress,
			expErr:    &Error{Kind: KindSyncInProgress, Message: "a sync is already in progress"},
			expStatus: http.StatusConflict,
		},
		{
			name: "Not configured",
			err:  errors.NotConfigured{Missing: []string{"serverURL"}},
			expErr: &Error{
				Kind:     KindNotConfigured,
				Message:  errors.NotConfigured{}.FriendlyMessage(),
				Friendly: true,
			},
			expStatus: http.StatusPreconditionFailed,
		},
		{
			name: "Wrapped token expired",
			err:  errors.WithContext(errors.TokenExpired{User: "a@b.c"}, "load token"),
			expErr: &Error{
				Kind:     KindTokenExpired,
				Message:  errors.TokenExpired{User: "a@b.c"}.FriendlyMessage(),
				Friendly: true,
			},
			expStatus: http.StatusUnauthorized,
		},
		{
			name:      "Other",
			err:       errors.WithContext(errors.New("boom"), "read config"),
			expErr:    &Error{Message: "read config: boom"},
			expStatus: http.StatusInternalServerError,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			apiErr := MarshalError(test.err)
			assert.Equal(t, test.expErr, apiErr)
			assert.Equal(t, test.expStatus, apiErr.HTTPStatus())
		})
	}
}

func TestUnmarshalError(t *testing.T) {
	assert.NoError(t, (*Error)(nil).Unmarshal())

	assert.Equal(t, errors.ErrSyncInProgress,
		(&Error{Kind: KindSyncInProgress, Message: "busy"}).Unmarshal())

	err := (&Error{Kind: KindNotLoggedIn, Message: "Please log in", Friendly: true}).Unmarshal()
	msg, ok := errors.GetFriendlyMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "Please log in", msg)

	err = (&Error{Message: "boom"}).Unmarshal()
	_, ok = errors.GetFriendlyMessage(err)
	assert.False(t, ok)
	assert.EqualError(t, err, "boom")
}
