package rounds

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/sealedvote/sealedvote/ledger"
	"github.com/sealedvote/sealedvote/mpc"
	"github.com/sealedvote/sealedvote/storage"
	"github.com/sealedvote/sealedvote/types"
	"github.com/sealedvote/sealedvote/util"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	authority = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	escrowAcc = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
)

const testFee = 100

type fixture struct {
	orchestrator *Orchestrator
	engine       *mpc.SimEngine
	stg          *storage.Storage
	settler      *ledger.MemLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := metadb.New(db.TypePebble, filepath.Join(t.TempDir(), "db"))
	qt.Assert(t, err, qt.IsNil)
	stg := storage.New(database)
	t.Cleanup(stg.Close)

	settler := ledger.NewMemLedger()
	orchestrator, err := New(Config{
		Storage:       stg,
		Settler:       settler,
		Authority:     authority,
		EscrowAccount: escrowAcc,
		ProposalFee:   testFee,
	})
	qt.Assert(t, err, qt.IsNil)
	engine := mpc.NewSimEngine(stg, orchestrator.OnCallback)
	orchestrator.SetEngine(engine)
	return &fixture{
		orchestrator: orchestrator,
		engine:       engine,
		stg:          stg,
		settler:      settler,
	}
}

// open opens the genesis round and waits for its zero tally.
func (f *fixture) open(t *testing.T) {
	t.Helper()
	_, err := f.orchestrator.OpenRound(context.Background())
	qt.Assert(t, err, qt.IsNil)
	f.engine.Wait()
}

// submit funds an address and submits a proposal from it.
func (f *fixture) submit(t *testing.T, submitter common.Address, title string) *types.Proposal {
	t.Helper()
	f.settler.Fund(submitter, testFee)
	url := "https://proposals.test/" + util.RandomHex(8)
	proposal, err := f.orchestrator.SubmitProposal(submitter, title, "", url)
	qt.Assert(t, err, qt.IsNil)
	return proposal
}

// vote encrypts a choice, casts it and waits for the fold to land.
func (f *fixture) vote(t *testing.T, roundID uint64, voter common.Address, choice uint8) *types.VoteReceipt {
	t.Helper()
	pub := types.HexBytes(voter.Bytes())
	var nonce types.Nonce
	copy(nonce[:], voter.Bytes())
	ct := f.engine.EncryptChoice(choice, pub, nonce)
	receipt, err := f.orchestrator.CastVote(context.Background(), roundID, choice, voter, ct, pub, nonce)
	qt.Assert(t, err, qt.IsNil)
	f.engine.Wait()
	return receipt
}

func addr(i int) common.Address {
	return common.HexToAddress(fmt.Sprintf("0x%040x", i+1))
}

func TestGenesisRound(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)

	round, err := f.orchestrator.OpenRound(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(round.ID, qt.Equals, uint64(0))
	c.Assert(round.Phase, qt.Equals, types.PhaseOpen)

	// Genesis can only happen once.
	_, err = f.orchestrator.OpenRound(context.Background())
	c.Assert(err, qt.ErrorIs, ErrInvalidPhase)

	f.engine.Wait()
	tally, err := f.stg.Tally()
	c.Assert(err, qt.IsNil)
	c.Assert(tally.RoundID, qt.Equals, uint64(0))

	// The pending slot is free once the init callback lands.
	_, err = f.stg.PendingByRound(0)
	c.Assert(err, qt.Equals, storage.ErrNotFound)
}

func TestSubmitProposal(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	f.open(t)

	submitter := addr(0)

	// The fee must be covered.
	_, err := f.orchestrator.SubmitProposal(submitter, "underfunded", "", "")
	c.Assert(err, qt.ErrorIs, ledger.ErrInsufficientFunds)

	proposal := f.submit(t, submitter, "first")
	c.Assert(proposal.ID, qt.Equals, uint8(0))
	c.Assert(f.settler.Balance(submitter), qt.Equals, uint64(0))
	c.Assert(f.settler.Balance(escrowAcc), qt.Equals, uint64(testFee))

	escrow, err := f.orchestrator.Escrow(0)
	c.Assert(err, qt.IsNil)
	c.Assert(escrow.TotalCollected, qt.Equals, uint64(testFee))
	c.Assert(len(escrow.RecordHandle) > 0, qt.IsTrue)

	// Validation limits.
	f.settler.Fund(submitter, 10*testFee)
	_, err = f.orchestrator.SubmitProposal(submitter, "", "", "")
	c.Assert(err, qt.IsNotNil)
	_, err = f.orchestrator.SubmitProposal(submitter, string(make([]byte, types.MaxTitleLen+1)), "", "")
	c.Assert(err, qt.IsNotNil)
	_, err = f.orchestrator.SubmitProposal(submitter, "ok", string(make([]byte, types.MaxDescriptionLen+1)), "")
	c.Assert(err, qt.IsNotNil)

	// The round holds at most MaxProposals proposals.
	for i := 1; i < types.MaxProposals; i++ {
		f.submit(t, addr(i), fmt.Sprintf("proposal %d", i))
	}
	f.settler.Fund(submitter, testFee)
	_, err = f.orchestrator.SubmitProposal(submitter, "overflow", "", "")
	c.Assert(err, qt.ErrorIs, ErrMaxProposalsReached)

	proposals, err := f.orchestrator.Proposals(0)
	c.Assert(err, qt.IsNil)
	c.Assert(proposals, qt.HasLen, types.MaxProposals)
}

func TestCastVote(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	f.open(t)
	f.submit(t, addr(0), "alpha")
	f.submit(t, addr(1), "beta")

	voter := addr(10)

	// Votes must target an existing proposal.
	pub := types.HexBytes(voter.Bytes())
	var nonce types.Nonce
	ct := f.engine.EncryptChoice(5, pub, nonce)
	_, err := f.orchestrator.CastVote(context.Background(), 0, 5, voter, ct, pub, nonce)
	c.Assert(err, qt.ErrorIs, ErrInvalidProposalID)
	// No receipt was created for the rejected vote.
	_, err = f.orchestrator.VerifyMembership(0, voter)
	c.Assert(err, qt.Equals, storage.ErrNotFound)

	// A stale round id is rejected outright.
	_, err = f.orchestrator.CastVote(context.Background(), 7, 0, voter, ct, pub, nonce)
	c.Assert(err, qt.ErrorIs, ErrInvalidRound)

	receipt := f.vote(t, 0, voter, 1)
	c.Assert(receipt.RoundID, qt.Equals, uint64(0))

	round, err := f.orchestrator.CurrentRound()
	c.Assert(err, qt.IsNil)
	c.Assert(round.VoterCount, qt.Equals, uint64(1))

	// One ballot per voter per round.
	_, err = f.orchestrator.CastVote(context.Background(), 0, 0, voter, ct, pub, nonce)
	c.Assert(err, qt.ErrorIs, ErrAlreadyVoted)

	// The receipt proves membership without exposing the choice.
	got, err := f.orchestrator.VerifyMembership(0, voter)
	c.Assert(err, qt.IsNil)
	c.Assert(got.EncryptedChoice, qt.Equals, receipt.EncryptedChoice)
}

func TestSingleFlightTally(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	f.open(t)
	f.submit(t, addr(0), "alpha")

	voterA, voterB := addr(10), addr(11)
	pubA := types.HexBytes(voterA.Bytes())
	pubB := types.HexBytes(voterB.Bytes())
	var nonce types.Nonce

	// Voter A's fold never resolves, occupying the round's single slot.
	f.engine.DropNext(mpc.KindVote)
	ctA := f.engine.EncryptChoice(0, pubA, nonce)
	_, err := f.orchestrator.CastVote(context.Background(), 0, 0, voterA, ctA, pubA, nonce)
	c.Assert(err, qt.IsNil)
	f.engine.Wait()

	// Voter B is rejected as busy and no receipt is burned.
	ctB := f.engine.EncryptChoice(0, pubB, nonce)
	_, err = f.orchestrator.CastVote(context.Background(), 0, 0, voterB, ctB, pubB, nonce)
	c.Assert(err, qt.ErrorIs, ErrTallyBusy)
	_, err = f.orchestrator.VerifyMembership(0, voterB)
	c.Assert(err, qt.Equals, storage.ErrNotFound)

	// So is the reveal.
	err = f.orchestrator.RequestReveal(context.Background(), authority, 0)
	c.Assert(err, qt.ErrorIs, ErrTallyBusy)

	// The operator abandons the stuck computation.
	c.Assert(f.orchestrator.ForceRetry(context.Background(), authority, 0), qt.IsNil)

	// Voter A's receipt survived; the fold is simply reissued.
	c.Assert(f.orchestrator.ReissueVote(context.Background(), 0, voterA, voterA), qt.IsNil)
	f.engine.Wait()

	round, err := f.orchestrator.CurrentRound()
	c.Assert(err, qt.IsNil)
	c.Assert(round.VoterCount, qt.Equals, uint64(1))

	// The freed slot accepts voter B now.
	_, err = f.orchestrator.CastVote(context.Background(), 0, 0, voterB, ctB, pubB, nonce)
	c.Assert(err, qt.IsNil)
	f.engine.Wait()
}

func TestVoteBeforeTallyInit(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)

	// The genesis init never resolves: the round opens but has no tally.
	f.engine.DropNext(mpc.KindInit)
	_, err := f.orchestrator.OpenRound(context.Background())
	c.Assert(err, qt.IsNil)
	f.engine.Wait()

	// Proposals are fine; they never touch the tally.
	f.submit(t, addr(0), "alpha")

	// Ballots are busy until the zero tally exists.
	voter := addr(10)
	pub := types.HexBytes(voter.Bytes())
	var nonce types.Nonce
	ct := f.engine.EncryptChoice(0, pub, nonce)
	_, err = f.orchestrator.CastVote(context.Background(), 0, 0, voter, ct, pub, nonce)
	c.Assert(err, qt.ErrorIs, ErrTallyBusy)

	// ForceRetry notices the missing tally and reissues the init.
	c.Assert(f.orchestrator.ForceRetry(context.Background(), authority, 0), qt.IsNil)
	f.engine.Wait()
	_, err = f.stg.Tally()
	c.Assert(err, qt.IsNil)

	f.vote(t, 0, voter, 0)
}

func TestAbortedFoldLeavesReceipt(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	f.open(t)
	f.submit(t, addr(0), "alpha")

	voter := addr(10)
	pub := types.HexBytes(voter.Bytes())
	var nonce types.Nonce
	ct := f.engine.EncryptChoice(0, pub, nonce)

	f.engine.AbortNext(mpc.KindVote)
	_, err := f.orchestrator.CastVote(context.Background(), 0, 0, voter, ct, pub, nonce)
	c.Assert(err, qt.IsNil)
	f.engine.Wait()

	// The abort cleared the slot without touching the tally or the count.
	round, err := f.orchestrator.CurrentRound()
	c.Assert(err, qt.IsNil)
	c.Assert(round.VoterCount, qt.Equals, uint64(0))
	_, err = f.stg.PendingByRound(0)
	c.Assert(err, qt.Equals, storage.ErrNotFound)

	// The receipt stays, so only a reissue is needed; recasting is refused.
	_, err = f.orchestrator.CastVote(context.Background(), 0, 0, voter, ct, pub, nonce)
	c.Assert(err, qt.ErrorIs, ErrAlreadyVoted)

	// Only the voter or the authority may reissue.
	err = f.orchestrator.ReissueVote(context.Background(), 0, addr(11), voter)
	c.Assert(err, qt.ErrorIs, ErrUnauthorized)
	c.Assert(f.orchestrator.ReissueVote(context.Background(), 0, authority, voter), qt.IsNil)
	f.engine.Wait()

	round, err = f.orchestrator.CurrentRound()
	c.Assert(err, qt.IsNil)
	c.Assert(round.VoterCount, qt.Equals, uint64(1))
}

func TestReissueRejectsFoldedBallot(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	f.open(t)
	f.submit(t, addr(0), "alpha")
	f.submit(t, addr(1), "beta")

	voter := addr(10)
	f.vote(t, 0, voter, 1)

	rcpt, err := f.stg.Receipt(0, voter)
	c.Assert(err, qt.IsNil)
	c.Assert(rcpt.Folded, qt.IsTrue)

	// A settled ballot never re-enters the tally, no matter who asks.
	err = f.orchestrator.ReissueVote(context.Background(), 0, voter, voter)
	c.Assert(err, qt.ErrorIs, ErrAlreadyVoted)
	err = f.orchestrator.ReissueVote(context.Background(), 0, authority, voter)
	c.Assert(err, qt.ErrorIs, ErrAlreadyVoted)

	round, err := f.orchestrator.CurrentRound()
	c.Assert(err, qt.IsNil)
	c.Assert(round.VoterCount, qt.Equals, uint64(1))

	// The revealed count confirms the single increment.
	c.Assert(f.orchestrator.RequestReveal(context.Background(), authority, 0), qt.IsNil)
	f.engine.Wait()
	round, err = f.stg.Round(0)
	c.Assert(err, qt.IsNil)
	c.Assert(round.Winner.ProposalID, qt.Equals, uint8(1))
	c.Assert(round.Winner.VoteCount, qt.Equals, uint64(1))
}

func TestRevealAndArchive(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	f.open(t)
	f.submit(t, addr(0), "alpha")
	f.submit(t, addr(1), "beta")
	f.submit(t, addr(2), "gamma")

	// Two votes for beta, one for gamma.
	f.vote(t, 0, addr(10), 1)
	f.vote(t, 0, addr(11), 1)
	f.vote(t, 0, addr(12), 2)

	// Authority only.
	err := f.orchestrator.RequestReveal(context.Background(), addr(10), 0)
	c.Assert(err, qt.ErrorIs, ErrUnauthorized)

	c.Assert(f.orchestrator.RequestReveal(context.Background(), authority, 0), qt.IsNil)

	// Tallying rejects new ballots and proposals.
	pub := types.HexBytes(addr(13).Bytes())
	var nonce types.Nonce
	ct := f.engine.EncryptChoice(0, pub, nonce)
	_, err = f.orchestrator.CastVote(context.Background(), 0, 0, addr(13), ct, pub, nonce)
	c.Assert(err, qt.ErrorIs, ErrInvalidPhase)

	f.engine.Wait()
	round, err := f.orchestrator.CurrentRound()
	c.Assert(err, qt.IsNil)
	c.Assert(round.Phase, qt.Equals, types.PhaseRevealed)
	c.Assert(round.Winner, qt.IsNotNil)
	c.Assert(round.Winner.ProposalID, qt.Equals, uint8(1))
	c.Assert(round.Winner.VoteCount, qt.Equals, uint64(2))
	c.Assert(round.Winner.RevealedBy, qt.Equals, authority)

	// A second reveal request is illegal in Revealed.
	err = f.orchestrator.RequestReveal(context.Background(), authority, 0)
	c.Assert(err, qt.ErrorIs, ErrInvalidPhase)

	// Archive closes the round and opens the next one.
	entry, err := f.orchestrator.Archive(context.Background(), authority, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(entry.RoundID, qt.Equals, uint64(0))
	c.Assert(entry.WinningID, qt.Equals, uint8(1))
	c.Assert(entry.WinningVotes, qt.Equals, uint64(2))
	c.Assert(entry.TotalProposals, qt.Equals, uint8(3))
	c.Assert(entry.TotalVoters, qt.Equals, uint64(3))
	c.Assert(entry.RevealedBy, qt.Equals, authority)

	archived, err := f.orchestrator.Round(0)
	c.Assert(err, qt.IsNil)
	c.Assert(archived.Phase, qt.Equals, types.PhaseArchived)
	c.Assert(archived.Winner, qt.IsNil)

	// The winning proposal's public count is filled in at archive time.
	winner, err := f.orchestrator.Proposal(0, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(winner.VoteCount, qt.Equals, uint64(2))

	escrow, err := f.orchestrator.Escrow(0)
	c.Assert(err, qt.IsNil)
	c.Assert(escrow.Status, qt.Equals, types.EscrowCompleted)

	current, err := f.orchestrator.CurrentRound()
	c.Assert(err, qt.IsNil)
	c.Assert(current.ID, qt.Equals, uint64(1))
	c.Assert(current.Phase, qt.Equals, types.PhaseOpen)
	c.Assert(current.ProposalCount, qt.Equals, uint8(0))

	// Archiving twice is illegal; the history entry is immutable.
	_, err = f.orchestrator.Archive(context.Background(), authority, 0)
	c.Assert(err, qt.ErrorIs, ErrInvalidPhase)

	// Round 1 accepts proposals and ballots once its init callback lands.
	f.engine.Wait()
	f.submit(t, addr(3), "next round proposal")
	f.vote(t, 1, addr(10), 0)
}

func TestStuckRevealRecovery(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	f.open(t)
	f.submit(t, addr(0), "alpha")
	f.vote(t, 0, addr(10), 0)

	// The reveal never resolves.
	f.engine.DropNext(mpc.KindReveal)
	c.Assert(f.orchestrator.RequestReveal(context.Background(), authority, 0), qt.IsNil)
	f.engine.Wait()

	round, err := f.orchestrator.CurrentRound()
	c.Assert(err, qt.IsNil)
	c.Assert(round.Phase, qt.Equals, types.PhaseTallying)

	// Archive requires Revealed.
	_, err = f.orchestrator.Archive(context.Background(), authority, 0)
	c.Assert(err, qt.ErrorIs, ErrInvalidPhase)

	err = f.orchestrator.ForceRetry(context.Background(), addr(10), 0)
	c.Assert(err, qt.ErrorIs, ErrUnauthorized)

	c.Assert(f.orchestrator.ForceRetry(context.Background(), authority, 0), qt.IsNil)
	f.engine.Wait()

	round, err = f.orchestrator.CurrentRound()
	c.Assert(err, qt.IsNil)
	c.Assert(round.Phase, qt.Equals, types.PhaseRevealed)
	c.Assert(round.Winner.ProposalID, qt.Equals, uint8(0))
}

func TestVerifyWinningVote(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	f.open(t)
	f.submit(t, addr(0), "alpha")
	f.submit(t, addr(1), "beta")

	winnerVoter, loserVoter := addr(10), addr(11)
	winReceipt := f.vote(t, 0, winnerVoter, 1)
	loseReceipt := f.vote(t, 0, loserVoter, 0)
	f.vote(t, 0, addr(12), 1)

	// The round must be closed before verification.
	_, err := f.orchestrator.VerifyWinningVote(context.Background(), 0, winnerVoter, winReceipt.EncryptedChoice)
	c.Assert(err, qt.ErrorIs, ErrInvalidRound)

	c.Assert(f.orchestrator.RequestReveal(context.Background(), authority, 0), qt.IsNil)
	f.engine.Wait()
	_, err = f.orchestrator.Archive(context.Background(), authority, 0)
	c.Assert(err, qt.IsNil)
	f.engine.Wait()

	matches, err := f.orchestrator.VerifyWinningVote(context.Background(), 0, winnerVoter, winReceipt.EncryptedChoice)
	c.Assert(err, qt.IsNil)
	c.Assert(matches, qt.IsTrue)

	matches, err = f.orchestrator.VerifyWinningVote(context.Background(), 0, loserVoter, loseReceipt.EncryptedChoice)
	c.Assert(err, qt.IsNil)
	c.Assert(matches, qt.IsFalse)

	// The claimed ciphertext must equal the stored receipt's.
	_, err = f.orchestrator.VerifyWinningVote(context.Background(), 0, winnerVoter, loseReceipt.EncryptedChoice)
	c.Assert(err, qt.ErrorIs, ErrReceiptMismatch)

	// Non-voters hold no receipt to verify.
	_, err = f.orchestrator.VerifyWinningVote(context.Background(), 0, addr(13), winReceipt.EncryptedChoice)
	c.Assert(err, qt.Equals, storage.ErrNotFound)
}

func TestDecryptVote(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	f.open(t)
	f.submit(t, addr(0), "alpha")
	f.submit(t, addr(1), "beta")

	voter := addr(10)
	receipt := f.vote(t, 0, voter, 1)

	_, err := f.orchestrator.DecryptVote(context.Background(), voter,
		receipt.EncryptedChoice, receipt.PublicKey, receipt.Nonce)
	c.Assert(err, qt.ErrorIs, ErrUnauthorized)

	choice, err := f.orchestrator.DecryptVote(context.Background(), authority,
		receipt.EncryptedChoice, receipt.PublicKey, receipt.Nonce)
	c.Assert(err, qt.IsNil)
	c.Assert(choice, qt.Equals, uint8(1))
}
