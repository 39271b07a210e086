package auth

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrDomainNotAllowed   = errors.New("email domain not authorized")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrSocialAccount      = errors.New("account uses social login")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrGoogleToken        = errors.New("invalid Google token")
)

var localized = map[error]string{
	ErrInvalidCredentials: "E-posta veya şifre hatalı.",
	ErrEmailAlreadyExists: "Bu e-posta adresi zaten kullanımda.",
	ErrDomainNotAllowed:   "Bu e-posta alan adı ile giriş yetkiniz bulunmuyor.",
	ErrTooManyAttempts:    "Çok fazla başarısız deneme. Lütfen daha sonra tekrar deneyin.",
	ErrSocialAccount:      "Bu hesap Google ile giriş kullanıyor.",
	ErrInvalidToken:       "Oturumunuzun süresi doldu. Lütfen tekrar giriş yapın.",
	ErrInvalidResetToken:  "Şifre sıfırlama bağlantısı geçersiz veya süresi dolmuş.",
	ErrGoogleToken:        "Google ile giriş doğrulanamadı.",
	ErrUserNotFound:       "Kullanıcı bulunamadı.",
}

// Message returns the user-facing text for an auth error
func Message(err error) string {
	for target, msg := range localized {
		if errors.Is(err, target) {
			return msg
		}
	}
	return "Giriş sırasında bir hata oluştu. Lütfen tekrar deneyin."
}
