package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProfile struct {
	RollNo   string `json:"roll_no" validate:"required,notblank"`
	Semester int    `json:"semester" validate:"required,gt=0"`
	Dob      string `json:"dob" validate:"required,bsdate"`
}

type testRegister struct {
	Email   string      `json:"email" validate:"required,email"`
	Profile testProfile `json:"profile"`
}

type testRoutine struct {
	Day   string `json:"day" validate:"required,weekday"`
	Start string `json:"start_time" validate:"required,clock"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		err := Struct(testRegister{
			Email:   "ram@example.com",
			Profile: testProfile{RollNo: "R1", Semester: 3, Dob: "2058/01/15"},
		})
		assert.NoError(t, err)
	})

	t.Run("field paths use json names", func(t *testing.T) {
		err := Struct(testRegister{
			Email:   "not-an-email",
			Profile: testProfile{RollNo: "  ", Dob: "2058-01-15"},
		})
		var verr *Error
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "Enter a valid email address.", verr.Fields["email"])
		assert.Equal(t, "This field may not be blank.", verr.Fields["profile.roll_no"])
		assert.Equal(t, "This field is required.", verr.Fields["profile.semester"])
		assert.Equal(t, "Date must be in YYYY/MM/DD format.", verr.Fields["profile.dob"])
	})

	t.Run("weekday and clock", func(t *testing.T) {
		assert.NoError(t, Struct(testRoutine{Day: "monday", Start: "09:30"}))
		assert.NoError(t, Struct(testRoutine{Day: "Friday", Start: "23:59:59"}))

		err := Struct(testRoutine{Day: "Funday", Start: "25:00"})
		var verr *Error
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "day must be a day of the week.", verr.Fields["day"])
		assert.Equal(t, "Time must be in HH:MM or HH:MM:SS format.", verr.Fields["start_time"])
	})
}

func TestError(t *testing.T) {
	e := NewError("dob", "Date of birth does not match our records.", "shift", "Shift does not match our records.")
	e.Add("dob", "ignored")
	assert.Equal(t, "Date of birth does not match our records.", e.Fields["dob"])
	assert.Len(t, e.Fields, 2)
	assert.Equal(t, "validation failed: dob: Date of birth does not match our records.; shift: Shift does not match our records.", e.Error())

	var empty *Error
	assert.True(t, empty.Empty())
	assert.NoError(t, (&Error{}).Err())
	assert.Error(t, e.Err())
}

func TestNormalizeWeekday(t *testing.T) {
	day, ok := NormalizeWeekday(" sUnDaY ")
	assert.True(t, ok)
	assert.Equal(t, "Sunday", day)

	_, ok = NormalizeWeekday("someday")
	assert.False(t, ok)
}

func TestPassword(t *testing.T) {
	attrs := []UserAttr{{Name: "email", Value: "ram.sharma@example.com"}, {Name: "username", Value: "ram.sharma"}}

	tests := []struct {
		name string
		pwd  string
		want string
	}{
		{name: "ok", pwd: "Tr1cky-Orbit", want: ""},
		{name: "too short", pwd: "Ab1!", want: "This password is too short. It must contain at least 8 characters."},
		{name: "numeric", pwd: "9876123450", want: "This password is entirely numeric."},
		{name: "common", pwd: "Password123", want: "This password is too common."},
		{name: "similar to email", pwd: "ramsharma", want: "The password is too similar to the email."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Password(tt.pwd, attrs...))
		})
	}
}

func TestCommonPasswordsLoaded(t *testing.T) {
	assert.NotEmpty(t, commonPasswords)
	assert.NotContains(t, commonPasswords, "# frequently used passwords rejected at registration.")
}
