// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - CreateSecurePollRequest: title, description, allow_multiple_choices, options
  - SubmitVoteRequest: pollId, optionId
  - VerifyVoteRequest: pollId, verificationToken

# Response Types

  - SubmitVoteResponse: message, verificationToken, pollId
  - VoterStatusResponse: hasVoted
  - VerifyVoteResponse: verified, message or error, last_voted
  - ErrorResponse: error, message

# Domain Types

  - Poll: poll metadata with the is_secure mode tag
  - Option: interned option text
  - PollWithOptions: poll plus its options ordered by id
  - Receipt: result of a secure vote submission
  - VerifyResult: outcome of a token check
  - AuditReport: tally versus ballot recount

# Messages

Verification failures use MsgVerifyFailed or MsgNoVoteFound and nothing
else, so a failed check reveals neither the stored token nor the ballot.
*/
package models
