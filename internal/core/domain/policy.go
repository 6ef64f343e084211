package domain

// OperationKind enumerates the task operations subject to authorization.
type OperationKind int

const (
	OpCreate OperationKind = iota + 1
	OpReadAll
	OpUpdate
	OpDelete
)

func (k OperationKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpReadAll:
		return "read_all"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Operation is a requested action. Task is the current stored record for
// Update and Delete, nil when it does not exist. Fields is the set the caller
// asked to change on Update.
type Operation struct {
	Kind   OperationKind
	Task   *Task
	Fields FieldSet
}

// Decision is the outcome of Authorize. Reason is one of the domain sentinel
// errors when Allow is false. AllowedFields and Dropped are only meaningful
// for Update: Dropped is the part of Operation.Fields that will be ignored.
type Decision struct {
	Allow         bool
	Reason        error
	AllowedFields FieldSet
	Dropped       FieldSet
}

// Err returns nil for an allowed decision and the denial reason otherwise.
func (d Decision) Err() error {
	if d.Allow {
		return nil
	}
	if d.Reason == nil {
		return ErrForbidden
	}
	return d.Reason
}

func allow(fields FieldSet) Decision { return Decision{Allow: true, AllowedFields: fields} }
func deny(reason error) Decision { return Decision{Reason: reason} }

// Authorize decides whether p may perform op. Rules are evaluated in order and
// the first match wins:
//
//  1. no principal: Unauthenticated
//  2. Create: admins only
//  3. Delete: admins only, whether or not the task exists
//  4. Update: NotFound when the task is missing, then admins get every field,
//     owners get description and status, anyone else is Forbidden
//  5. ReadAll: always allowed, narrowed later by VisibleTasks
func Authorize(p *Principal, op Operation) Decision {
	d := decide(p, op)
	if d.Allow && op.Kind == OpUpdate {
		d.Dropped = op.Fields.Without(d.AllowedFields)
	}
	return d
}

func decide(p *Principal, op Operation) Decision {
	if p == nil {
		return deny(ErrUnauthenticated)
	}

	switch op.Kind {
	case OpCreate, OpDelete:
		switch p.Role {
		case RoleAdmin:
			return allow(NoFields)
		case RoleUser:
			return deny(ErrForbidden)
		default:
			return deny(ErrForbidden)
		}

	case OpUpdate:
		if op.Task == nil {
			return deny(ErrTaskNotFound)
		}
		switch p.Role {
		case RoleAdmin:
			return allow(AllTaskFields)
		case RoleUser:
			if op.Task.OwnerID != p.UserID {
				return deny(ErrForbidden)
			}
			return allow(OwnerMutableFields)
		default:
			return deny(ErrForbidden)
		}

	case OpReadAll:
		return allow(NoFields)

	default:
		return deny(ErrForbidden)
	}
}

// VisibleTasks returns the subsequence of tasks p may enumerate, preserving
// the input order. Admins see everything; users see only what they own.
func VisibleTasks(p *Principal, tasks []Task) []Task {
	if p == nil {
		return nil
	}
	switch p.Role {
	case RoleAdmin:
		out := make([]Task, len(tasks))
		copy(out, tasks)
		return out
	case RoleUser:
		out := make([]Task, 0, len(tasks))
		for _, t := range tasks {
			if t.OwnerID == p.UserID {
				out = append(out, t)
			}
		}
		return out
	default:
		return nil
	}
}
