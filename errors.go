package main

import (
	"errors"
	"fmt"
	"strings"
)

// Admission failures, reported to the offending client before its
// connection is closed. Neither affects an existing match.
var (
	errRoomFull  = errors.New("the room is full")
	errNameTaken = errors.New("that name is already taken")
	errBadName   = errors.New("names must be between 1 and 20 characters")
)

var errProbeTimeout = errors.New("liveness probe timed out")

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
