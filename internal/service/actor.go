package service

// Actor is the identity a request acts as. The zero value is anonymous.
type Actor struct {
	UserID int
}

// Anonymous is the actor of requests without a session.
var Anonymous = Actor{}

// AsUser returns the actor for a signed-in user.
func AsUser(id int) Actor { return Actor{UserID: id} }

func (a Actor) Authenticated() bool { return a.UserID > 0 }
