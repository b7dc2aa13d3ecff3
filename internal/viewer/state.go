package viewer

// State is everything the page layers over the loaded document.
type State struct {
	Filter Filter
	Saved  SavedSet
}

// Intent is one user action on the page.
type Intent interface {
	apply(State) State
}

type SetCity struct{ City string }

type SetCategory struct{ Category string }

type SetAfterWork struct{ On bool }

type ToggleSaved struct{ ID string }

func (i SetCity) apply(s State) State {
	s.Filter.City = i.City
	s.Filter = s.Filter.normalized()
	return s
}

func (i SetCategory) apply(s State) State {
	s.Filter.Category = i.Category
	s.Filter = s.Filter.normalized()
	return s
}

func (i SetAfterWork) apply(s State) State {
	s.Filter.AfterWork = i.On
	return s
}

func (i ToggleSaved) apply(s State) State {
	s.Saved = s.Saved.Toggle(i.ID)
	return s
}

// Reduce returns the state after intent. s is not modified.
func Reduce(s State, intent Intent) State {
	if intent == nil {
		return s
	}
	return intent.apply(s)
}
