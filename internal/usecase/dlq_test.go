package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"agrinudge/internal/dialect"
	"agrinudge/internal/domain"
)

func TestHandleRecord_SendsDialectMatchedApology(t *testing.T) {
	p := domain.NewProfile("919876543210")
	p.Dialect = "te"
	store := &mockStore{profiles: map[string]*domain.Profile{"919876543210": &p}}
	sender := &mockMessenger{}
	s, err := NewDLQService(store, sender)
	require.NoError(t, err)

	body := []byte(`{"wamid":"wamid.1","from":"919876543210","type":"text","message":{}}`)
	require.NoError(t, s.HandleRecord(context.Background(), body))

	require.Len(t, sender.texts, 1)
	require.Equal(t, dialect.ErrorText(dialect.Telugu), sender.texts[0].body)
}

func TestHandleRecord_UnknownUserGetsDefaultDialect(t *testing.T) {
	store := &mockStore{profiles: map[string]*domain.Profile{}}
	sender := &mockMessenger{}
	s, err := NewDLQService(store, sender)
	require.NoError(t, err)

	body := []byte(`{"wamid":"wamid.1","from":"15550001111","type":"text","message":{}}`)
	require.NoError(t, s.HandleRecord(context.Background(), body))
	require.Equal(t, dialect.ErrorText(dialect.Default), sender.texts[0].body)
}

func TestHandleRecord_UnparseableBodyIsConsumed(t *testing.T) {
	sender := &mockMessenger{}
	s, err := NewDLQService(&mockStore{}, sender)
	require.NoError(t, err)

	// A poison record must never requeue from the dead-letter path.
	require.NoError(t, s.HandleRecord(context.Background(), []byte("not json")))
	require.NoError(t, s.HandleRecord(context.Background(), []byte(`{"wamid":"x"}`)))
	require.Empty(t, sender.texts)
}

func TestHandleRecord_SendFailurePropagates(t *testing.T) {
	store := &mockStore{profiles: map[string]*domain.Profile{}}
	sender := &mockMessenger{textErr: errors.New("transport down")}
	s, err := NewDLQService(store, sender)
	require.NoError(t, err)

	err = s.HandleRecord(context.Background(), []byte(`{"wamid":"wamid.1","from":"1","type":"text","message":{}}`))
	var uerr *Error
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ErrorUpstream, uerr.Code)
}
