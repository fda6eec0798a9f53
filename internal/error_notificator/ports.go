package error_notificator

import "github.com/Vovarama1992/speech2face/internal/ports"

// Notificator: тот же контракт, что и в ports, чтобы main мог выбрать реализацию
type Notificator = ports.Notificator
