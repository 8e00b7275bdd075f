package policies

import (
	"sync"
	"testing"

	"github.com/PauloHFS/goth-blog/internal/db"
)

func newPolicy(t testing.TB) *PostPolicy {
	t.Helper()
	p, err := NewPostPolicy()
	if err != nil {
		t.Fatalf("falha ao criar policy: %v", err)
	}
	return p
}

func TestAuthorize(t *testing.T) {
	p := newPolicy(t)

	const authorID, otherID int64 = 2, 3
	public := &db.Post{ID: "p1", AuthorID: authorID, Visibility: db.VisibilityPublic}
	private := &db.Post{ID: "p2", AuthorID: authorID, Visibility: db.VisibilityPrivate}

	author := AuthenticatedAs(authorID)
	other := AuthenticatedAs(otherID)
	anon := Anonymous()

	tests := []struct {
		name      string
		action    Action
		requester Requester
		post      *db.Post
		allowed   bool
		reason    Reason
	}{
		{"Anônimo lê post público", ActionRead, anon, public, true, ReasonNone},
		{"Outro usuário lê post público", ActionRead, other, public, true, ReasonNone},
		{"Autor lê post público", ActionRead, author, public, true, ReasonNone},
		{"Autor lê post privado", ActionRead, author, private, true, ReasonNone},
		{"Outro usuário não lê post privado", ActionRead, other, private, false, ReasonForbidden},
		{"Anônimo não lê post privado", ActionRead, anon, private, false, ReasonForbidden},

		{"Usuário cria post", ActionCreate, other, nil, true, ReasonNone},
		{"Anônimo não cria post", ActionCreate, anon, nil, false, ReasonUnauthenticated},

		{"Autor edita post", ActionUpdate, author, public, true, ReasonNone},
		{"Autor edita post privado", ActionUpdate, author, private, true, ReasonNone},
		{"Outro usuário não edita", ActionUpdate, other, public, false, ReasonForbidden},
		{"Anônimo não edita", ActionUpdate, anon, public, false, ReasonUnauthenticated},

		{"Autor remove post", ActionDelete, author, private, true, ReasonNone},
		{"Outro usuário não remove", ActionDelete, other, private, false, ReasonForbidden},
		{"Anônimo não remove", ActionDelete, anon, public, false, ReasonUnauthenticated},

		{"Ação desconhecida", Action("publish"), author, public, false, ReasonForbidden},
		{"Ação desconhecida anônima", Action(""), anon, public, false, ReasonForbidden},
		{"Leitura sem post", ActionRead, author, nil, false, ReasonForbidden},
		{"Visibilidade inválida", ActionRead, other, &db.Post{AuthorID: authorID, Visibility: "draft"}, false, ReasonForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Authorize(tt.action, tt.requester, tt.post)
			if got.Allowed != tt.allowed || got.Reason != tt.reason {
				t.Errorf("falha em %s: esperado {%v %s}, obtido {%v %s}",
					tt.name, tt.allowed, tt.reason, got.Allowed, got.Reason)
			}
		})
	}
}

func TestAuthorizeDeterministic(t *testing.T) {
	p := newPolicy(t)
	post := &db.Post{AuthorID: 1, Visibility: db.VisibilityPrivate}

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			requester := AuthenticatedAs(int64(i%3 + 1))
			want := requester.UserID == 1
			if got := p.Authorize(ActionRead, requester, post); got.Allowed != want {
				t.Errorf("usuário %d: esperado %v, obtido %v", requester.UserID, want, got.Allowed)
			}
		}(i)
	}
	wg.Wait()
}

func TestCanEditPost(t *testing.T) {
	p := newPolicy(t)
	post := db.Post{ID: "p10", AuthorID: 2, Visibility: db.VisibilityPublic}

	if !p.CanEditPost(2, post) {
		t.Error("autor deveria poder editar seu post")
	}
	if p.CanEditPost(3, post) {
		t.Error("outro usuário não deveria poder editar")
	}
}

func BenchmarkAuthorize(b *testing.B) {
	p := newPolicy(b)
	post := &db.Post{AuthorID: 1, Visibility: db.VisibilityPrivate}
	requesters := []Requester{Anonymous(), AuthenticatedAs(1), AuthenticatedAs(2)}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			p.Authorize(ActionRead, requesters[i%len(requesters)], post)
			i++
		}
	})
}
