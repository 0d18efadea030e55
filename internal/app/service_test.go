package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/scorekeep/internal/adapters/identity"
	"github.com/okian/scorekeep/internal/adapters/repository"
	service "github.com/okian/scorekeep/internal/app"
	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/internal/domain/password"
	"github.com/okian/scorekeep/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var errBoom = errors.New("boom")

// flakyStore wraps the memory store with injectable failures and call counts.
type flakyStore struct {
	*repository.MemoryStore

	mu              sync.Mutex
	calls           int
	failAdd         error
	failTop         error
	failCreate      error
	skipPseudoCheck bool
	closed          int

	// legacy holds user records that predate pseudo reservations.
	legacy []model.User
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: repository.NewMemoryStore()}
}

func (f *flakyStore) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *flakyStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *flakyStore) AddScore(ctx context.Context, pseudo string, score float64) error {
	f.count()
	if f.failAdd != nil {
		return f.failAdd
	}
	return f.MemoryStore.AddScore(ctx, pseudo, score)
}

func (f *flakyStore) TopScores(ctx context.Context, limit int) ([]model.Score, error) {
	f.count()
	if f.failTop != nil {
		return nil, f.failTop
	}
	return f.MemoryStore.TopScores(ctx, limit)
}

func (f *flakyStore) PseudoReserved(ctx context.Context, pseudo string) (bool, error) {
	f.count()
	if f.skipPseudoCheck {
		return false, nil
	}
	return f.MemoryStore.PseudoReserved(ctx, pseudo)
}

func (f *flakyStore) CreateAccount(ctx context.Context, user model.User) error {
	f.count()
	if f.failCreate != nil {
		return f.failCreate
	}
	return f.MemoryStore.CreateAccount(ctx, user)
}

func (f *flakyStore) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	f.count()
	f.mu.Lock()
	for _, u := range f.legacy {
		if u.Email == email {
			f.mu.Unlock()
			return u, nil
		}
	}
	f.mu.Unlock()
	return f.MemoryStore.FindUserByEmail(ctx, email)
}

func (f *flakyStore) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return f.MemoryStore.Close()
}

func (f *flakyStore) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// flakyIdentity wraps the local provider with injectable failures.
type flakyIdentity struct {
	*identity.LocalProvider

	mu             sync.Mutex
	creates        int
	deletes        int
	deleteFailures int
	failToken      error
}

func newFlakyIdentity(t *testing.T) *flakyIdentity {
	p, err := identity.NewLocalProvider("test-secret", identity.WithHasher(password.NewHasher(bcrypt.MinCost)))
	if err != nil {
		t.Fatalf("local provider: %v", err)
	}
	return &flakyIdentity{LocalProvider: p}
}

func (f *flakyIdentity) CreateUser(ctx context.Context, email, pass string) (string, error) {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	return f.LocalProvider.CreateUser(ctx, email, pass)
}

func (f *flakyIdentity) CustomToken(ctx context.Context, uid string) (string, error) {
	if f.failToken != nil {
		return "", f.failToken
	}
	return f.LocalProvider.CustomToken(ctx, uid)
}

func (f *flakyIdentity) DeleteUser(ctx context.Context, uid string) error {
	f.mu.Lock()
	f.deletes++
	fail := f.deleteFailures > 0
	if fail {
		f.deleteFailures--
	}
	f.mu.Unlock()
	if fail {
		return errBoom
	}
	return f.LocalProvider.DeleteUser(ctx, uid)
}

func (f *flakyIdentity) Counts() (creates, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.deletes
}

func newService(t *testing.T, store *flakyStore, ident *flakyIdentity, opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithHasher(password.NewHasher(bcrypt.MinCost)),
		service.WithCleanup(1, 16, 5, time.Millisecond),
	}, opts...)
	svc := service.New(store, ident, opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		store := newFlakyStore()
		svc := service.New(store, newFlakyIdentity(t),
			service.WithDriverNames("memory", "local"))

		Convey("Then it reports not started", func() {
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When it is started and stopped", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["storeDriver"], ShouldEqual, "memory")
			So(stats["cleanupQueueLength"], ShouldEqual, 0)
			So(stats["cleanupWorkers"], ShouldEqual, 2)

			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
			svc.Stop()

			Convey("Then the store is left open for its owner", func() {
				So(store.Closed(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a service without collaborators", t, func() {
		svc := service.New(nil, nil)
		So(svc.Start(context.Background()), ShouldNotBeNil)
	})
}

func TestService_Scores(t *testing.T) {
	Convey("Given a running service", t, func() {
		store := newFlakyStore()
		svc := newService(t, store, newFlakyIdentity(t), service.WithLeaderboardLimit(2))
		ctx := context.Background()

		Convey("When scores are submitted", func() {
			So(svc.SubmitScore(ctx, "A", 10), ShouldBeNil)
			So(svc.SubmitScore(ctx, "B", 30), ShouldBeNil)
			So(svc.SubmitScore(ctx, "C", 20), ShouldBeNil)

			Convey("Then the leaderboard is ordered and limited", func() {
				top, err := svc.Leaderboard(ctx)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 2)
				So(top[0].Pseudo, ShouldEqual, "B")
				So(top[1].Pseudo, ShouldEqual, "C")
			})
		})

		Convey("When the pseudo is empty", func() {
			err := svc.SubmitScore(ctx, "", 1)
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			So(store.Calls(), ShouldEqual, 0)
		})

		Convey("When the store fails", func() {
			store.failAdd = errBoom
			store.failTop = errBoom
			So(errors.Is(svc.SubmitScore(ctx, "A", 1), errBoom), ShouldBeTrue)
			_, err := svc.Leaderboard(ctx)
			So(errors.Is(err, errBoom), ShouldBeTrue)
		})
	})
}

func TestService_Register(t *testing.T) {
	Convey("Given a running service", t, func() {
		store := newFlakyStore()
		ident := newFlakyIdentity(t)
		svc := newService(t, store, ident)
		ctx := context.Background()

		Convey("When a new player registers", func() {
			sess, err := svc.Register(ctx, "neo@example.com", "matrix", "neo")
			So(err, ShouldBeNil)

			Convey("Then a session and both records exist", func() {
				So(sess.UID, ShouldNotBeEmpty)
				So(sess.Pseudo, ShouldEqual, "neo")
				claims := &identity.Claims{}
				_, err := jwt.ParseWithClaims(sess.Token, claims, func(*jwt.Token) (any, error) {
					return []byte("test-secret"), nil
				}, jwt.WithValidMethods([]string{"HS256"}))
				So(err, ShouldBeNil)
				So(claims.UID, ShouldEqual, sess.UID)

				reserved, _ := store.PseudoReserved(ctx, "neo")
				So(reserved, ShouldBeTrue)
				user, err := store.FindUserByEmail(ctx, "neo@example.com")
				So(err, ShouldBeNil)
				So(user.UID, ShouldEqual, sess.UID)
				So(user.PasswordHash, ShouldNotBeEmpty)
				So(user.PasswordHash, ShouldNotEqual, "matrix")
			})

			Convey("Then the player can log in", func() {
				login, err := svc.Login(ctx, "neo@example.com", "matrix")
				So(err, ShouldBeNil)
				So(login.UID, ShouldEqual, sess.UID)
				So(login.Pseudo, ShouldEqual, "neo")
				So(login.Token, ShouldNotBeEmpty)
			})

			Convey("Then the pseudo cannot be taken again", func() {
				_, err := svc.Register(ctx, "other@example.com", "pw", "neo")
				So(errors.Is(err, service.ErrPseudoTaken), ShouldBeTrue)
				creates, _ := ident.Counts()
				So(creates, ShouldEqual, 1)
			})

			Convey("Then the email cannot be reused", func() {
				_, err := svc.Register(ctx, "neo@example.com", "pw", "trinity")
				So(errors.Is(err, service.ErrEmailTaken), ShouldBeTrue)
				reserved, _ := store.PseudoReserved(ctx, "trinity")
				So(reserved, ShouldBeFalse)
			})
		})

		Convey("When fields are missing", func() {
			_, err := svc.Register(ctx, "a@example.com", "", "x")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			So(store.Calls(), ShouldEqual, 0)
		})

		Convey("When the pseudo cannot key a document", func() {
			for _, p := range []string{"a/b", "..", "   "} {
				_, err := svc.Register(ctx, "a@example.com", "pw", p)
				So(errors.Is(err, service.ErrInvalidPseudo), ShouldBeTrue)
			}
			So(store.Calls(), ShouldEqual, 0)
		})

		Convey("When another registration wins the pseudo after the pre-check", func() {
			So(store.CreateAccount(ctx, model.User{UID: "winner", Email: "w@example.com", Pseudo: "neo"}), ShouldBeNil)
			store.skipPseudoCheck = true

			_, err := svc.Register(ctx, "late@example.com", "pw", "neo")

			Convey("Then the conflict is reported and the identity rolled back", func() {
				So(errors.Is(err, service.ErrPseudoTaken), ShouldBeTrue)
				creates, deletes := ident.Counts()
				So(creates, ShouldEqual, 1)
				So(deletes, ShouldEqual, 1)
				_, err := ident.CreateUser(ctx, "late@example.com", "pw")
				So(err, ShouldBeNil)
			})
		})

		Convey("When the account write fails and rollback fails once", func() {
			store.failCreate = errBoom
			ident.deleteFailures = 1

			_, err := svc.Register(ctx, "ghost@example.com", "pw", "ghost")

			Convey("Then a server error is returned and the cleanup workers delete the identity", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, service.ErrPseudoTaken), ShouldBeFalse)
				ok := eventually(func() bool {
					_, deletes := ident.Counts()
					return deletes == 2
				})
				So(ok, ShouldBeTrue)
				So(eventually(func() bool {
					_, err := ident.CreateUser(ctx, "ghost@example.com", "pw")
					return err == nil
				}), ShouldBeTrue)
			})
		})

		Convey("When the token cannot be issued", func() {
			ident.failToken = errBoom

			_, err := svc.Register(ctx, "t@example.com", "pw", "tokenless")

			Convey("Then a server error is returned and the account is kept", func() {
				So(errors.Is(err, errBoom), ShouldBeTrue)
				reserved, _ := store.PseudoReserved(ctx, "tokenless")
				So(reserved, ShouldBeTrue)
				_, deletes := ident.Counts()
				So(deletes, ShouldEqual, 0)
			})
		})

		Convey("When many players race for one pseudo", func() {
			store.skipPseudoCheck = true
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins int
			)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := svc.Register(ctx, fmt.Sprintf("p%d@example.com", i), "pw", "contested")
					if err == nil {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()

			Convey("Then exactly one wins and every loser's identity is rolled back", func() {
				So(wins, ShouldEqual, 1)
				creates, deletes := ident.Counts()
				So(creates, ShouldEqual, 10)
				So(deletes, ShouldEqual, 9)
				reserved, err := store.PseudoReserved(ctx, "contested")
				So(err, ShouldBeNil)
				So(reserved, ShouldBeTrue)
				users := 0
				for i := 0; i < 10; i++ {
					if _, err := store.FindUserByEmail(ctx, fmt.Sprintf("p%d@example.com", i)); err == nil {
						users++
					}
				}
				So(users, ShouldEqual, 1)
			})
		})
	})
}

func TestService_Login(t *testing.T) {
	Convey("Given stored users", t, func() {
		store := newFlakyStore()
		ident := newFlakyIdentity(t)
		ctx := context.Background()

		uid, err := ident.CreateUser(ctx, "legacy@example.com", "plain")
		So(err, ShouldBeNil)
		store.legacy = append(store.legacy, model.User{UID: uid, Email: "legacy@example.com", Pseudo: "oldtimer", Password: "plain"})

		Convey("When plaintext credentials are not allowed", func() {
			svc := newService(t, store, ident)

			_, err := svc.Login(ctx, "legacy@example.com", "plain")
			So(errors.Is(err, service.ErrIncorrectPassword), ShouldBeTrue)

			Convey("Then unknown users and bad passwords are distinguished", func() {
				_, err := svc.Login(ctx, "nobody@example.com", "x")
				So(errors.Is(err, service.ErrUserNotFound), ShouldBeTrue)

				_, err = svc.Register(ctx, "neo@example.com", "right", "neo")
				So(err, ShouldBeNil)
				_, err = svc.Login(ctx, "neo@example.com", "wrong")
				So(errors.Is(err, service.ErrIncorrectPassword), ShouldBeTrue)
			})

			Convey("Then missing fields are rejected before the store", func() {
				before := store.Calls()
				_, err := svc.Login(ctx, "", "x")
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				So(store.Calls(), ShouldEqual, before)
			})
		})

		Convey("When plaintext credentials are allowed", func() {
			svc := newService(t, store, ident, service.WithPlaintextPasswords(true))

			sess, err := svc.Login(ctx, "legacy@example.com", "plain")
			So(err, ShouldBeNil)
			So(sess.UID, ShouldEqual, uid)
			So(sess.Pseudo, ShouldEqual, "oldtimer")

			_, err = svc.Login(ctx, "legacy@example.com", "nope")
			So(errors.Is(err, service.ErrIncorrectPassword), ShouldBeTrue)
		})

		Convey("When the token cannot be issued", func() {
			svc := newService(t, store, ident, service.WithPlaintextPasswords(true))
			ident.failToken = errBoom

			_, err := svc.Login(ctx, "legacy@example.com", "plain")
			So(errors.Is(err, errBoom), ShouldBeTrue)
		})
	})
}
