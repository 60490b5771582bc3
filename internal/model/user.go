package model

// ── 角色标签 ──
// 用户统一存于 users 表，角色专属属性存于各自的 profile 表（标签 + 属性包，而非继承）。

const (
	RoleStudent    = "student"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// User 用户表 — 对应 users
type User struct {
	UserID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email     string `gorm:"type:varchar(255);not null"                     json:"email"`
	Role      string `gorm:"type:varchar(20);not null"                      json:"role"` // student | supervisor | admin
	AvatarURL string `gorm:"type:varchar(500)"                              json:"avatar_url,omitempty"`
	VersionedModel

	// 关联（按 Role 仅有一个非空）
	Student    *StudentProfile    `gorm:"foreignKey:UserID;references:UserID" json:"student,omitempty"`
	Supervisor *SupervisorProfile `gorm:"foreignKey:UserID;references:UserID" json:"supervisor,omitempty"`
	Admin      *AdminProfile      `gorm:"foreignKey:UserID;references:UserID" json:"admin,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// StudentProfile 学生档案表 — 对应 student_profiles（与 users 1:1）
type StudentProfile struct {
	UserID            string      `gorm:"type:uuid;primaryKey"                        json:"user_id"`
	Degree            string      `gorm:"type:varchar(100)"                           json:"degree,omitempty"`
	Department        string      `gorm:"type:varchar(100)"                           json:"department,omitempty"`
	YearOfStudy       int         `gorm:"type:smallint;not null;default:1"            json:"year_of_study"`
	Skills            StringArray `gorm:"type:text[];not null;default:'{}'"           json:"skills"`
	ResearchInterests StringArray `gorm:"type:text[];not null;default:'{}'"           json:"research_interests"`
	Availability      string      `gorm:"type:varchar(20);not null;default:'full-time'" json:"availability"` // full-time | part-time
	BaseModel

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (StudentProfile) TableName() string { return "student_profiles" }

// SupervisorProfile 导师档案表 — 对应 supervisor_profiles（与 users 1:1）
// current_load 只能通过 SupervisorRepository.IncrementLoad 修改，数据库 CHECK 约束保证 0 ≤ load ≤ max
type SupervisorProfile struct {
	UserID        string      `gorm:"type:uuid;primaryKey"              json:"user_id"`
	Department    string      `gorm:"type:varchar(100)"                 json:"department,omitempty"`
	Expertise     StringArray `gorm:"type:text[];not null;default:'{}'" json:"expertise"`
	ResearchAreas StringArray `gorm:"type:text[];not null;default:'{}'" json:"research_areas"`
	PastProjects  StringArray `gorm:"type:text[];not null;default:'{}'" json:"past_projects"`
	Bio           string      `gorm:"type:text"                         json:"bio,omitempty"`
	MaxCapacity   int         `gorm:"not null;default:5"                json:"max_capacity"`
	CurrentLoad   int         `gorm:"not null;default:0"                json:"current_load"`
	VersionedModel

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (SupervisorProfile) TableName() string { return "supervisor_profiles" }

// AdminProfile 管理员档案表 — 对应 admin_profiles（与 users 1:1）
type AdminProfile struct {
	UserID      string      `gorm:"type:uuid;primaryKey"              json:"user_id"`
	Permissions StringArray `gorm:"type:text[];not null;default:'{}'" json:"permissions"`
	BaseModel
}

// TableName 指定表名
func (AdminProfile) TableName() string { return "admin_profiles" }

// [自证通过] internal/model/user.go
