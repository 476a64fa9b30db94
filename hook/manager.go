package hook

import log "github.com/sirupsen/logrus"

// Manager is a helper type that simplifies calling group of hooks and handling
// returned errors.
type Manager struct {
	Hooks []Hook
}

// HandleEvent calls group of hooks sequentially and returns their environments
// combined in call order. It returns on the first hook error when ignoreErrors
// is false, together with the environment gathered so far. When ignoreErrors
// is true every hook is called, errors are only logged and nil is returned.
func (m *Manager) HandleEvent(event Event, ignoreErrors bool) (Env, error) {
	var combined Env
	for _, hook := range m.Hooks {
		log.WithField("Unit", event.Unit).Debugf("Calling %T hook to handle %s", hook, event.Type)
		env, err := hook.HandleEvent(event)
		combined = append(combined, env...)
		if err != nil {
			if !ignoreErrors {
				return combined, err
			}
			log.WithError(err).WithField("Unit", event.Unit).Errorf("%T hook failed to handle %s", hook, event.Type)
		}
	}

	return combined, nil
}
