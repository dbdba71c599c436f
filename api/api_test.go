package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/sealedvote/sealedvote/ledger"
	"github.com/sealedvote/sealedvote/mpc"
	"github.com/sealedvote/sealedvote/rounds"
	"github.com/sealedvote/sealedvote/storage"
	"github.com/sealedvote/sealedvote/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	authority = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	escrowAcc = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
)

type testServer struct {
	srv     *httptest.Server
	engine  *mpc.SimEngine
	settler *ledger.MemLedger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database, err := metadb.New(db.TypePebble, filepath.Join(t.TempDir(), "db"))
	qt.Assert(t, err, qt.IsNil)
	stg := storage.New(database)
	t.Cleanup(stg.Close)

	settler := ledger.NewMemLedger()
	orchestrator, err := rounds.New(rounds.Config{
		Storage:       stg,
		Settler:       settler,
		Authority:     authority,
		EscrowAccount: escrowAcc,
		ProposalFee:   100,
	})
	qt.Assert(t, err, qt.IsNil)
	engine := mpc.NewSimEngine(stg, orchestrator.OnCallback)
	orchestrator.SetEngine(engine)

	a := &API{orchestrator: orchestrator}
	a.initRouter()
	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, engine: engine, settler: settler}
}

// request performs an HTTP call and decodes the JSON response into out when
// out is non-nil.
func (ts *testServer) request(t *testing.T, method, path string, body, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		qt.Assert(t, err, qt.IsNil)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, ts.srv.URL+path, reader)
	qt.Assert(t, err, qt.IsNil)
	resp, err := http.DefaultClient.Do(req)
	qt.Assert(t, err, qt.IsNil)
	defer func() { _ = resp.Body.Close() }()
	if out != nil && resp.StatusCode == http.StatusOK {
		qt.Assert(t, json.NewDecoder(resp.Body).Decode(out), qt.IsNil)
	}
	return resp.StatusCode
}

// openRound opens the genesis round and waits for its tally.
func (ts *testServer) openRound(t *testing.T) {
	t.Helper()
	status := ts.request(t, http.MethodPost, "/rounds", nil, nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	ts.engine.Wait()
}

func (ts *testServer) submitProposal(t *testing.T, submitter common.Address, title string) {
	t.Helper()
	ts.settler.Fund(submitter, 100)
	status := ts.request(t, http.MethodPost, "/rounds/0/proposals",
		&ProposalRequest{Submitter: submitter, Title: title}, nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
}

func (ts *testServer) castVote(t *testing.T, voter common.Address, choice uint8) *VoteRequest {
	t.Helper()
	pub := types.HexBytes(voter.Bytes())
	var nonce types.Nonce
	copy(nonce[:], voter.Bytes())
	ct := ts.engine.EncryptChoice(choice, pub, nonce)
	req := &VoteRequest{
		Voter:           voter,
		ProposalID:      choice,
		EncryptedChoice: types.HexBytes(ct.Bytes()),
		PublicKey:       pub,
		Nonce:           types.HexBytes(nonce.Bytes()),
	}
	status := ts.request(t, http.MethodPost, "/rounds/0/votes", req, nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	ts.engine.Wait()
	return req
}

func addr(i int) common.Address {
	return common.HexToAddress(fmt.Sprintf("0x%040x", i+1))
}

func TestPing(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(t)
	c.Assert(ts.request(t, http.MethodGet, "/ping", nil, nil), qt.Equals, http.StatusOK)
}

func TestRoundEndpoints(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(t)

	// No genesis yet.
	c.Assert(ts.request(t, http.MethodGet, "/rounds/current", nil, nil), qt.Equals, http.StatusNotFound)

	ts.openRound(t)

	// Genesis is a one-shot.
	c.Assert(ts.request(t, http.MethodPost, "/rounds", nil, nil), qt.Equals, http.StatusConflict)

	round := &types.Round{}
	c.Assert(ts.request(t, http.MethodGet, "/rounds/current", nil, round), qt.Equals, http.StatusOK)
	c.Assert(round.ID, qt.Equals, uint64(0))
	c.Assert(round.Phase, qt.Equals, types.PhaseOpen)

	c.Assert(ts.request(t, http.MethodGet, "/rounds/0", nil, round), qt.Equals, http.StatusOK)
	c.Assert(ts.request(t, http.MethodGet, "/rounds/99", nil, nil), qt.Equals, http.StatusNotFound)
	c.Assert(ts.request(t, http.MethodGet, "/rounds/bogus", nil, nil), qt.Equals, http.StatusBadRequest)
}

func TestProposalEndpoints(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(t)
	ts.openRound(t)

	submitter := addr(0)

	// The submission fee must be covered.
	status := ts.request(t, http.MethodPost, "/rounds/0/proposals",
		&ProposalRequest{Submitter: submitter, Title: "broke"}, nil)
	c.Assert(status, qt.Equals, http.StatusPaymentRequired)

	ts.submitProposal(t, submitter, "alpha")
	ts.submitProposal(t, addr(1), "beta")

	// Submitting against a non-current round is rejected.
	ts.settler.Fund(submitter, 100)
	status = ts.request(t, http.MethodPost, "/rounds/7/proposals",
		&ProposalRequest{Submitter: submitter, Title: "stale"}, nil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	var proposals []*types.Proposal
	c.Assert(ts.request(t, http.MethodGet, "/rounds/0/proposals", nil, &proposals), qt.Equals, http.StatusOK)
	c.Assert(proposals, qt.HasLen, 2)

	proposal := &types.Proposal{}
	c.Assert(ts.request(t, http.MethodGet, "/rounds/0/proposals/1", nil, proposal), qt.Equals, http.StatusOK)
	c.Assert(proposal.Title, qt.Equals, "beta")
	c.Assert(ts.request(t, http.MethodGet, "/rounds/0/proposals/9", nil, nil), qt.Equals, http.StatusNotFound)
}

func TestVoteEndpoints(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(t)
	ts.openRound(t)
	ts.submitProposal(t, addr(0), "alpha")
	ts.submitProposal(t, addr(1), "beta")

	voter := addr(10)
	vote := ts.castVote(t, voter, 1)

	// Double voting is a conflict.
	status := ts.request(t, http.MethodPost, "/rounds/0/votes", vote, nil)
	c.Assert(status, qt.Equals, http.StatusConflict)

	// The receipt is retrievable by address.
	receipt := &types.VoteReceipt{}
	path := "/rounds/0/receipts/" + voter.Hex()
	c.Assert(ts.request(t, http.MethodGet, path, nil, receipt), qt.Equals, http.StatusOK)
	c.Assert(receipt.Voter, qt.Equals, voter)

	c.Assert(ts.request(t, http.MethodGet, "/rounds/0/receipts/"+addr(11).Hex(), nil, nil),
		qt.Equals, http.StatusNotFound)
	c.Assert(ts.request(t, http.MethodGet, "/rounds/0/receipts/nothex", nil, nil),
		qt.Equals, http.StatusBadRequest)

	// Malformed ballots never reach the orchestrator.
	bad := *vote
	bad.Voter = addr(12)
	bad.EncryptedChoice = types.HexBytes{0x01}
	status = ts.request(t, http.MethodPost, "/rounds/0/votes", &bad, nil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	// Reissuing a ballot that already settled is a conflict, not a second
	// increment.
	reissue := &ReissueRequest{Caller: voter, Voter: voter}
	status = ts.request(t, http.MethodPost, "/rounds/0/votes/reissue", reissue, nil)
	c.Assert(status, qt.Equals, http.StatusConflict)
}

func TestFullRoundOverHTTP(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(t)
	ts.openRound(t)
	ts.submitProposal(t, addr(0), "alpha")
	ts.submitProposal(t, addr(1), "beta")

	winnerVote := ts.castVote(t, addr(10), 1)
	loserVote := ts.castVote(t, addr(11), 0)
	ts.castVote(t, addr(12), 1)

	// Reveal is authority-only.
	status := ts.request(t, http.MethodPost, "/rounds/0/reveal", &AuthorityRequest{Caller: addr(10)}, nil)
	c.Assert(status, qt.Equals, http.StatusUnauthorized)

	status = ts.request(t, http.MethodPost, "/rounds/0/reveal", &AuthorityRequest{Caller: authority}, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	ts.engine.Wait()

	round := &types.Round{}
	c.Assert(ts.request(t, http.MethodGet, "/rounds/current", nil, round), qt.Equals, http.StatusOK)
	c.Assert(round.Phase, qt.Equals, types.PhaseRevealed)
	c.Assert(round.Winner.ProposalID, qt.Equals, uint8(1))

	entry := &types.RoundHistory{}
	status = ts.request(t, http.MethodPost, "/rounds/0/archive", &AuthorityRequest{Caller: authority}, entry)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(entry.WinningID, qt.Equals, uint8(1))
	c.Assert(entry.WinningVotes, qt.Equals, uint64(2))
	ts.engine.Wait()

	// The archive is queryable forever.
	got := &types.RoundHistory{}
	c.Assert(ts.request(t, http.MethodGet, "/history/0", nil, got), qt.Equals, http.StatusOK)
	c.Assert(got.WinningID, qt.Equals, uint8(1))
	c.Assert(ts.request(t, http.MethodGet, "/history/1", nil, nil), qt.Equals, http.StatusNotFound)

	var all []*types.RoundHistory
	c.Assert(ts.request(t, http.MethodGet, "/history", nil, &all), qt.Equals, http.StatusOK)
	c.Assert(all, qt.HasLen, 1)

	escrow := &types.EscrowAccount{}
	c.Assert(ts.request(t, http.MethodGet, "/rounds/0/escrow", nil, escrow), qt.Equals, http.StatusOK)
	c.Assert(escrow.Status, qt.Equals, types.EscrowCompleted)
	c.Assert(escrow.TotalCollected, qt.Equals, uint64(200))

	// Winners and losers can check their ballot against the outcome.
	verifyResp := &VerifyResponse{}
	status = ts.request(t, http.MethodPost, "/rounds/0/verify",
		&VerifyRequest{Voter: addr(10), EncryptedChoice: winnerVote.EncryptedChoice}, verifyResp)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(verifyResp.Matches, qt.IsTrue)

	status = ts.request(t, http.MethodPost, "/rounds/0/verify",
		&VerifyRequest{Voter: addr(11), EncryptedChoice: loserVote.EncryptedChoice}, verifyResp)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(verifyResp.Matches, qt.IsFalse)

	// A claim that differs from the stored receipt is refused.
	status = ts.request(t, http.MethodPost, "/rounds/0/verify",
		&VerifyRequest{Voter: addr(10), EncryptedChoice: loserVote.EncryptedChoice}, nil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	// Audit decrypt is authority-only.
	decReq := &DecryptRequest{
		Caller:          addr(10),
		EncryptedChoice: winnerVote.EncryptedChoice,
		PublicKey:       winnerVote.PublicKey,
		Nonce:           winnerVote.Nonce,
	}
	c.Assert(ts.request(t, http.MethodPost, "/audit/decrypt", decReq, nil), qt.Equals, http.StatusUnauthorized)

	decReq.Caller = authority
	decResp := &DecryptResponse{}
	c.Assert(ts.request(t, http.MethodPost, "/audit/decrypt", decReq, decResp), qt.Equals, http.StatusOK)
	c.Assert(decResp.Choice, qt.Equals, uint8(1))
}

func TestRetryEndpoint(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(t)
	ts.openRound(t)
	ts.submitProposal(t, addr(0), "alpha")
	ts.castVote(t, addr(10), 0)

	ts.engine.DropNext(mpc.KindReveal)
	status := ts.request(t, http.MethodPost, "/rounds/0/reveal", &AuthorityRequest{Caller: authority}, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	ts.engine.Wait()

	status = ts.request(t, http.MethodPost, "/rounds/0/retry", &AuthorityRequest{Caller: authority}, nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	ts.engine.Wait()

	round := &types.Round{}
	c.Assert(ts.request(t, http.MethodGet, "/rounds/current", nil, round), qt.Equals, http.StatusOK)
	c.Assert(round.Phase, qt.Equals, types.PhaseRevealed)
}
