package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/seabattle-lobby/internal/model"
)

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"action":"join_game","gameId":"abc","data":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, model.Command{Action: "join_game", GameID: "abc", Data: "x"}, cmd)
}

func TestDecodeCommand_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `hello`},
		{"truncated", `{"action":"ping"`},
		{"missing action", `{"data":"x"}`},
		{"empty action", `{"action":""}`},
		{"array", `["ping"]`},
		{"wrong data type", `{"action":"set_name","data":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand([]byte(tt.frame))
			assert.ErrorIs(t, err, model.ErrMalformedCommand)
		})
	}
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{model.ErrAlreadyInGame, "You are already in a game"},
		{fmt.Errorf("wrapped: %w", model.ErrGameNotFound), "Game not found"},
		{model.ErrGameFull, "Game is full"},
		{model.ErrGameNotWaiting, "Game has already started"},
		{model.ErrPlayerNotFound, "Player not found"},
		{errors.New("surprise"), "Internal server error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorText(tt.err))
	}
}
